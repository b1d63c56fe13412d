package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walletkit/pluginhost/domain/entities"
)

func TestSessionState_String(t *testing.T) {
	cases := map[SessionState]string{
		SessionRunning:   "running",
		SessionYielded:   "yielded",
		SessionBlocked:   "blocked",
		SessionReturned:  "returned",
		SessionTrapped:   "trapped",
		SessionCancelled: "cancelled",
		SessionTimedOut:  "timed_out",
		SessionState(99): "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestSessionState_Terminal(t *testing.T) {
	assert.False(t, SessionRunning.terminal())
	assert.False(t, SessionYielded.terminal())
	assert.False(t, SessionBlocked.terminal())
	assert.True(t, SessionReturned.terminal())
	assert.True(t, SessionTrapped.terminal())
	assert.True(t, SessionCancelled.terminal())
	assert.True(t, SessionTimedOut.terminal())
}

func TestSession_ConsumeFuel_YieldsAtQuantumBoundary(t *testing.T) {
	sess := newSession(entities.NewSessionId(), entities.PluginId("p1"), 3)
	defer sess.closePipes()

	sess.consumeFuel() // fuel: 3 -> 2
	assert.Equal(t, SessionRunning, sess.getState())
	sess.consumeFuel() // fuel: 2 -> 1
	assert.Equal(t, SessionRunning, sess.getState())
	sess.consumeFuel() // fuel: 1 -> 0, yields and refills to quantum
	assert.Equal(t, SessionRunning, sess.getState())
	assert.Equal(t, int64(3), sess.fuel)
}

func TestSession_ClosePipes_SafeToCallTwice(t *testing.T) {
	sess := newSession(entities.NewSessionId(), entities.PluginId("p1"), 10)
	sess.closePipes()
	assert.NotPanics(t, func() { sess.closePipes() })
}

func TestWithSession_RoundTrips(t *testing.T) {
	sess := newSession(entities.NewSessionId(), entities.PluginId("p1"), 10)
	defer sess.closePipes()

	ctx := withSession(t.Context(), sess)
	got, ok := sessionFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = sessionFromContext(t.Context())
	assert.False(t, ok)
}
