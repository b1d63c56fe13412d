package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"golang.org/x/sync/semaphore"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
	"github.com/walletkit/pluginhost/host/routing"
	"github.com/walletkit/pluginhost/host/state"
	"github.com/walletkit/pluginhost/hostfuncs"
	"github.com/walletkit/pluginhost/internal/rpc"
)

const (
	defaultFuelQuantum    int64 = 10_000_000
	defaultSessionTimeout       = 30 * time.Second
	defaultMaxSessions    int64 = 16
)

// honoredWASIImports is the fixed menu a guest module may import from
// wasi_snapshot_preview1 (§4.1). Nothing else is instantiable: an import
// the runtime does not recognize is refused at load time rather than left
// to trap on first call.
var honoredWASIImports = map[string]bool{
	"args_sizes_get":    true,
	"args_get":          true,
	"environ_sizes_get": true,
	"environ_get":       true,
	"clock_time_get":    true,
	"random_get":        true,
	"sched_yield":       true,
	"proc_exit":         true,
	"fd_read":           true,
	"fd_write":          true,
	"poll_oneoff":       true,
}

// unhonoredImportError marks a module refused at load time because it
// imports something outside the honored WASI subset.
type unhonoredImportError struct {
	module, name string
}

func (e *unhonoredImportError) Error() string {
	return fmt.Sprintf("host: import %q from module %q is not honored by this runtime", e.name, e.module)
}

// validateImports rejects any compiled module that imports a function from
// outside the honored WASI subset, or from any module other than
// wasi_snapshot_preview1. Guests never get a "reglet_host"-style direct
// import: every host service call instead travels over the JSON-RPC stdio
// channel, so nothing besides WASI needs to be importable in the first
// place.
func validateImports(compiled wazero.CompiledModule) error {
	for _, def := range compiled.ImportedFunctions() {
		moduleName, name, _ := def.Import()
		if moduleName != wasiModuleName || !honoredWASIImports[name] {
			return &unhonoredImportError{module: moduleName, name: name}
		}
	}
	return nil
}

// loadedPlugin is everything the executor retains for a loaded plugin
// between sessions: its compiled module, instantiated fresh per invocation
// per §4.1, and a semaphore bounding concurrent sessions of that plugin
// (§5).
type loadedPlugin struct {
	compiled wazero.CompiledModule
	sem      *semaphore.Weighted
}

// Executor is the C1 WASM plugin host: it compiles plugin modules, runs one
// fresh session per invocation, and dispatches the host-service calls a
// session makes over its JSON-RPC stdio channel into the C3 handler
// registry. It implements hostfuncs.EntityCaller so the entities bundle can
// route a call_entity into whichever plugin owns the target entity.
type Executor struct {
	runtime        wazero.Runtime
	registry       *hostfuncs.HandlerRegistry
	stateMgr       *state.Manager
	entityRegistry *routing.Registry

	fuelQuantum     int64
	sessionTimeout  time.Duration
	maxSessions     int64
	schedulingLanes int

	lanes *scheduler

	mu      sync.Mutex
	plugins map[entities.PluginId]*loadedPlugin
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		fuelQuantum:     defaultFuelQuantum,
		sessionTimeout:  defaultSessionTimeout,
		maxSessions:     defaultMaxSessions,
		schedulingLanes: defaultSchedulingLanes,
		plugins:         make(map[entities.PluginId]*loadedPlugin),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		reg, err := hostfuncs.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		e.registry = reg
	}
	if e.stateMgr == nil {
		e.stateMgr = state.NewManager()
	}
	if e.entityRegistry == nil {
		e.entityRegistry = routing.NewRegistry()
	}

	// WithCloseOnContextDone makes a session's wall-clock deadline fatal
	// (§4.1: "expiry is fatal") by tearing the module down the instant its
	// context is cancelled, rather than waiting for it to notice on its own.
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	if err := registerWASI(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register wasi module: %w", err)
	}
	e.runtime = rt
	e.lanes = newScheduler(ctx, e.schedulingLanes)

	return e, nil
}

// Close releases resources held by the executor, including every compiled
// module still loaded.
func (e *Executor) Close(ctx context.Context) error {
	e.lanes.close()

	e.mu.Lock()
	plugins := e.plugins
	e.plugins = make(map[entities.PluginId]*loadedPlugin)
	e.mu.Unlock()

	for _, lp := range plugins {
		_ = lp.compiled.Close(ctx)
	}
	return e.runtime.Close(ctx)
}

// LoadPlugin compiles wasmBytes, refuses it if it imports anything outside
// the honored WASI subset, then runs a single init session calling
// plugin.init with config. If that session traps or returns an error, any
// entities or state keys it registered before failing are rolled back and
// the plugin is not retained (§4.1, §8 init-atomicity scenario) — host
// service handlers apply registrations and writes immediately and
// unconditionally, so there is nothing to commit, only something to undo.
func (e *Executor) LoadPlugin(ctx context.Context, pluginID entities.PluginId, wasmBytes []byte, config json.RawMessage) error {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("host: compile module: %w", err)
	}
	if err := validateImports(compiled); err != nil {
		_ = compiled.Close(ctx)
		return err
	}

	lp := &loadedPlugin{compiled: compiled, sem: semaphore.NewWeighted(e.maxSessions)}
	e.mu.Lock()
	e.plugins[pluginID] = lp
	e.mu.Unlock()

	if _, err := e.invoke(ctx, pluginID, lp, "plugin.init", config); err != nil {
		e.entityRegistry.UnregisterPlugin(pluginID)
		e.stateMgr.DropPlugin(pluginID)
		e.mu.Lock()
		delete(e.plugins, pluginID)
		e.mu.Unlock()
		_ = compiled.Close(ctx)
		return fmt.Errorf("host: plugin init failed: %w", err)
	}

	return nil
}

// UnloadPlugin drops pluginID's compiled module, every entity it registered,
// and its entire state partition.
func (e *Executor) UnloadPlugin(ctx context.Context, pluginID entities.PluginId) error {
	e.mu.Lock()
	lp, ok := e.plugins[pluginID]
	delete(e.plugins, pluginID)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("host: plugin %q is not loaded", pluginID)
	}

	e.entityRegistry.UnregisterPlugin(pluginID)
	e.stateMgr.DropPlugin(pluginID)
	return lp.compiled.Close(ctx)
}

// Call implements hostfuncs.EntityCaller: it starts a fresh session against
// target's compiled module and delivers method/params as that session's
// sole invocation.
func (e *Executor) Call(ctx context.Context, target entities.PluginId, method string, params json.RawMessage) (json.RawMessage, error) {
	e.mu.Lock()
	lp, ok := e.plugins[target]
	e.mu.Unlock()
	if !ok {
		return nil, &hosterrors.RoutingUnmatchedError{Method: method}
	}
	return e.invoke(ctx, target, lp, method, params)
}

// invoke is the session lifecycle entry point shared by LoadPlugin's init
// call and every later Call. It acquires the plugin's concurrency slot, then
// hands the actual session to the next free scheduling lane (§2B, §5) and
// blocks until that lane finishes it or ctx is cancelled first — the
// semaphore bounds concurrent sessions per plugin, the lane pool bounds how
// many sessions across all plugins run at once.
func (e *Executor) invoke(ctx context.Context, pluginID entities.PluginId, lp *loadedPlugin, method string, params json.RawMessage) (json.RawMessage, error) {
	if err := lp.sem.Acquire(ctx, 1); err != nil {
		return nil, &hosterrors.TransportError{Err: err}
	}
	defer lp.sem.Release(1)

	var result json.RawMessage
	var sessionErr error
	if err := e.lanes.submit(ctx, func() {
		result, sessionErr = e.runSession(ctx, pluginID, lp, method, params)
	}); err != nil {
		return nil, &hosterrors.TransportError{Err: err}
	}
	return result, sessionErr
}

// runSession is the session lifecycle core: spin up a fresh instance with
// its own stdio pipes, deliver exactly one JSON-RPC request to it, and tear
// everything down on any terminal outcome (§4.1's start -> running* ->
// terminal state machine). It runs on whichever lane invoke submitted it to.
func (e *Executor) runSession(ctx context.Context, pluginID entities.PluginId, lp *loadedPlugin, method string, params json.RawMessage) (json.RawMessage, error) {
	sessCtx, cancel := context.WithTimeout(ctx, e.sessionTimeout)
	defer cancel()

	sess := newSession(entities.NewSessionId(), pluginID, e.fuelQuantum)
	defer sess.closePipes()
	defer e.stateMgr.ForceUnlockSession(pluginID, sess.id)

	modCtx := withSession(sessCtx, sess)
	modConfig := wazero.NewModuleConfig().WithName(fmt.Sprintf("%s-%d", pluginID, sess.id))

	instErrCh := make(chan error, 1)
	go func() {
		mod, err := e.runtime.InstantiateModule(modCtx, lp.compiled, modConfig)
		if err != nil {
			instErrCh <- err
			return
		}
		sess.module = mod
	}()

	conn := rpc.NewConn(sess.stdoutR, sess.stdinW)
	go func() { _ = conn.Serve(modCtx, e.dispatchHandler(pluginID, sess)) }()

	type outcome struct {
		result json.RawMessage
		err    error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		result, err := conn.Call(modCtx, method, params)
		resultCh <- outcome{result, err}
	}()

	select {
	case o := <-resultCh:
		sess.setState(SessionReturned)
		if o.err != nil {
			sess.setState(SessionTrapped)
			return nil, o.err
		}
		return o.result, nil

	case err := <-instErrCh:
		sess.setState(SessionTrapped)
		return nil, &hosterrors.PluginTrapError{Err: err}

	case <-sessCtx.Done():
		sess.setState(SessionTimedOut)
		return nil, &hosterrors.TimeoutError{Operation: method, Duration: e.sessionTimeout}
	}
}

// dispatchHandler answers the host-service calls a session's guest makes
// over its stdio channel (state.*, entities.*, routing.*, ...), stamping
// the calling plugin and session onto context before handing off to the
// shared C3 registry (§4.3: the dispatcher derives identity from which
// session's stream the call arrived on, never from the guest's say-so).
func (e *Executor) dispatchHandler(pluginID entities.PluginId, sess *session) rpc.Handler {
	return func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *entities.ErrorDetail) {
		hctx := hostfuncs.WithCapabilityPluginID(ctx, pluginID)
		hctx = hostfuncs.WithSessionID(hctx, sess.id)
		hctx = withSession(hctx, sess)

		result, err := e.registry.Invoke(hctx, method, params)
		if err != nil {
			return nil, hosterrors.ToErrorDetail(err)
		}
		return result, nil
	}
}
