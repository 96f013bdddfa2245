package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_ReplaceAllIsSnapshotNotMerge(t *testing.T) {
	tr := NewTracker()

	tr.ReplaceAll([]string{"u1", "u2", "u3"})
	assert.True(t, tr.IsOnline("u1"))
	assert.True(t, tr.IsOnline("u3"))

	// next broadcast omits u1 and u3: they are gone, not merged
	tr.ReplaceAll([]string{"u2", "u4"})
	assert.False(t, tr.IsOnline("u1"))
	assert.False(t, tr.IsOnline("u3"))
	assert.True(t, tr.IsOnline("u2"))
	assert.True(t, tr.IsOnline("u4"))
	assert.Equal(t, []string{"u2", "u4"}, tr.Online())
}

func TestTracker_EmptyRosterClearsEveryone(t *testing.T) {
	tr := NewTracker()
	tr.ReplaceAll([]string{"u1", "u2"})

	tr.ReplaceAll(nil)
	assert.Empty(t, tr.Online())
	assert.False(t, tr.IsOnline("u1"))
}

func TestTracker_Clear(t *testing.T) {
	tr := NewTracker()
	tr.ReplaceAll([]string{"u1"})
	tr.Clear()
	assert.Empty(t, tr.Online())
}
