package social

import (
	"context"
	"sort"
	"sync"

	"chatwave/internal/common"
	"chatwave/internal/gateway"
	"chatwave/internal/model"
)

// FollowStore holds the local user's follow graph slice and runs follow
// toggles optimistically: the membership flips before the request resolves,
// the server's returned record is adopted wholesale on success (another
// session may have toggled concurrently), and the pre-toggle snapshot comes
// back on failure.
type FollowStore struct {
	gw   gateway.Gateway
	self string

	mu        sync.Mutex
	following map[string]bool
	followers map[string]bool
	inflight  map[string]bool
}

func NewFollowStore(gw gateway.Gateway, selfID string) *FollowStore {
	return &FollowStore{
		gw:        gw,
		self:      selfID,
		following: make(map[string]bool),
		followers: make(map[string]bool),
		inflight:  make(map[string]bool),
	}
}

// Seed loads the graph from the authenticated user's record.
func (f *FollowStore) Seed(u *model.User) {
	if u == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.following = toSet(u.Following)
	f.followers = toSet(u.Followers)
}

func (f *FollowStore) IsFollowing(targetID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.following[targetID]
}

func (f *FollowStore) Following() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedKeys(f.following)
}

func (f *FollowStore) Followers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedKeys(f.followers)
}

// ToggleFollow flips membership of targetID in the following set. A second
// toggle on the same target while one is in flight is rejected with
// ErrActionInFlight so two calls can never race the same snapshot.
func (f *FollowStore) ToggleFollow(ctx context.Context, targetID string) (*model.FollowResult, error) {
	if targetID == "" || targetID == f.self {
		return nil, common.NewValidationError("invalid follow target")
	}

	f.mu.Lock()
	if f.inflight[targetID] {
		f.mu.Unlock()
		return nil, common.ErrActionInFlight
	}
	f.inflight[targetID] = true
	prev := f.following[targetID]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.inflight, targetID)
		f.mu.Unlock()
	}()

	result, err := runOptimistic(
		func() {
			f.mu.Lock()
			f.following[targetID] = !prev
			f.mu.Unlock()
		},
		func() {
			f.mu.Lock()
			f.following[targetID] = prev
			f.mu.Unlock()
		},
		func() (*model.FollowResult, error) {
			return f.gw.ToggleFollow(ctx, targetID)
		},
		func(r *model.FollowResult) {
			f.mu.Lock()
			// the server record is the merge point, not the optimistic guess
			if r.User != nil {
				f.following = toSet(r.User.Following)
				f.followers = toSet(r.User.Followers)
			}
			f.mu.Unlock()
		},
	)
	if err != nil {
		return nil, &common.RollbackError{Action: "toggle-follow", TargetID: targetID, Err: err}
	}
	return result, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k, ok := range set {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
