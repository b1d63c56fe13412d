package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletkit/pluginhost/domain/hosterrors"
	"github.com/walletkit/pluginhost/host/routing"
	"github.com/walletkit/pluginhost/host/state"
)

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, e)
	if e != nil {
		err := e.Close(ctx)
		assert.NoError(t, err)
	}
}

func TestNewExecutor_DefaultsAreApplied(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer func() { _ = e.Close(ctx) }()

	assert.Equal(t, int64(defaultFuelQuantum), e.fuelQuantum)
	assert.Equal(t, defaultSessionTimeout, e.sessionTimeout)
	assert.Equal(t, defaultMaxSessions, e.maxSessions)
	assert.NotNil(t, e.stateMgr)
	assert.NotNil(t, e.entityRegistry)
}

func TestNewExecutor_OptionsOverrideDefaults(t *testing.T) {
	ctx := context.Background()
	stateMgr := state.NewManager()
	entityRegistry := routing.NewRegistry()

	e, err := NewExecutor(ctx,
		WithFuelQuantum(42),
		WithSessionTimeout(5*time.Second),
		WithMaxSessionsPerPlugin(2),
		WithSchedulingLanes(1),
		WithStateManager(stateMgr),
		WithEntityRegistry(entityRegistry),
	)
	require.NoError(t, err)
	defer func() { _ = e.Close(ctx) }()

	assert.Equal(t, int64(42), e.fuelQuantum)
	assert.Equal(t, 5*time.Second, e.sessionTimeout)
	assert.Equal(t, int64(2), e.maxSessions)
	assert.Equal(t, 1, e.schedulingLanes)
	assert.Same(t, stateMgr, e.stateMgr)
	assert.Same(t, entityRegistry, e.entityRegistry)
}

func TestScheduler_SubmitRunsOnALane(t *testing.T) {
	s := newScheduler(context.Background(), 2)
	defer s.close()

	results := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			_ = s.submit(context.Background(), func() { results <- i })
		}()
	}

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		seen[<-results] = true
	}
	assert.Len(t, seen, 3)
}

func TestScheduler_SubmitRespectsContextCancellation(t *testing.T) {
	s := newScheduler(context.Background(), 1)
	defer s.close()

	block := make(chan struct{})
	go func() { _ = s.submit(context.Background(), func() { <-block }) }()
	time.Sleep(10 * time.Millisecond) // let the lane pick up the blocking job

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}

func TestUnhonoredImportError_Message(t *testing.T) {
	err := &unhonoredImportError{module: "env", name: "open"}
	assert.Contains(t, err.Error(), "env")
	assert.Contains(t, err.Error(), "open")
}

func TestUnloadPlugin_NotLoaded_ReturnsError(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer func() { _ = e.Close(ctx) }()

	err = e.UnloadPlugin(ctx, "missing")
	assert.Error(t, err)
}

func TestCall_UnknownTarget_ReturnsRoutingUnmatched(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer func() { _ = e.Close(ctx) }()

	_, err = e.Call(ctx, "missing", "vault.balance", nil)
	require.Error(t, err)
	var routingErr *hosterrors.RoutingUnmatchedError
	require.ErrorAs(t, err, &routingErr)
}
