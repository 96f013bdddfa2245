package model

import "time"

type User struct {
	ID             string    `json:"id"`
	Handle         string    `json:"handle"`
	Email          string    `json:"email,omitempty"`
	ProfileDetails string    `json:"profile_details,omitempty"`
	Following      []string  `json:"following,omitempty"`
	Followers      []string  `json:"followers,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FollowAction values returned by the toggle-follow endpoint.
const (
	ActionFollowed   = "followed"
	ActionUnfollowed = "unfollowed"
)

// FollowResult is the authoritative outcome of a follow toggle: the action
// the server actually took plus both updated records. Concurrent toggles
// from other sessions can make this differ from the optimistic guess, so
// callers adopt it wholesale.
type FollowResult struct {
	Action string `json:"action"`
	User   *User  `json:"user"`
	Target *User  `json:"target"`
}
