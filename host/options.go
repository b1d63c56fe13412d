package host

import (
	"time"

	"github.com/walletkit/pluginhost/host/routing"
	"github.com/walletkit/pluginhost/host/state"
	"github.com/walletkit/pluginhost/hostfuncs"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithHostFunctions configures the executor with a host function registry.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(e *Executor) {
		e.registry = registry
	}
}

// WithStateManager configures the executor with a shared C4 state manager.
// Callers that also construct hostfuncs bundles should pass the same
// *state.Manager to both so host-service calls and the executor's
// init-rollback path agree on one partition.
func WithStateManager(mgr *state.Manager) Option {
	return func(e *Executor) {
		e.stateMgr = mgr
	}
}

// WithEntityRegistry configures the executor with a shared C5 entity
// registry, for the same reason WithStateManager does.
func WithEntityRegistry(registry *routing.Registry) Option {
	return func(e *Executor) {
		e.entityRegistry = registry
	}
}

// WithFuelQuantum sets how many sched_yield, fd_read, fd_write and
// poll_oneoff calls a session may make before yielding the scheduler (§4.1, §9). The default is 10,000,000.
func WithFuelQuantum(quantum int64) Option {
	return func(e *Executor) {
		e.fuelQuantum = quantum
	}
}

// WithSessionTimeout sets the wall-clock deadline after which a session's
// module is forcibly closed and the call fails as timed out (§4.1: expiry
// is fatal). The default is 30 seconds.
func WithSessionTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.sessionTimeout = d
	}
}

// WithMaxSessionsPerPlugin bounds how many sessions of a single plugin may
// run concurrently (§5). The default is 16.
func WithMaxSessionsPerPlugin(n int64) Option {
	return func(e *Executor) {
		e.maxSessions = n
	}
}

// WithSchedulingLanes sets how many sessions may run concurrently across
// the whole executor, regardless of plugin (§2B, §5). The default is 4.
func WithSchedulingLanes(n int) Option {
	return func(e *Executor) {
		e.schedulingLanes = n
	}
}
