package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/padmux/padmux/pad"
)

func TestFeedbackCellLatestWins(t *testing.T) {
	s := &session{fbNotify: make(chan struct{}, 1)}

	s.queueFeedback(pad.Feedback{RumbleLarge: 1})
	s.queueFeedback(pad.Feedback{RumbleLarge: 2})
	s.queueFeedback(pad.Feedback{RumbleLarge: 3})

	fb, ok := s.takeFeedback()
	assert.True(t, ok)
	assert.Equal(t, uint8(3), fb.RumbleLarge)

	// The cell is empty after one take; commands never queue up.
	_, ok = s.takeFeedback()
	assert.False(t, ok)

	// Repeated queueing leaves at most one pending nudge.
	assert.Len(t, s.fbNotify, 1)
}

func TestSessionStateStrings(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "degraded", StateDegraded.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
}
