package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
	"github.com/walletkit/pluginhost/host/routing"
	"github.com/walletkit/pluginhost/host/state"
	"github.com/walletkit/pluginhost/hostfuncs"
)

// Host is the library's external programmatic surface (§6): load_plugin,
// unload_plugin, call, resolve, snapshot, restore, and set_permission. It
// composes the pieces that, individually, only talk to each other —
// Executor, the entity Router, the CapabilityChecker, and the state
// Manager — into the handful of calls an embedder actually makes. Nothing
// in this file implements new logic; it wires the four together the way
// the teacher's examples/host-runtime/main.go wires a registry, an
// executor, and a loaded plugin into one linear call sequence.
type Host struct {
	executor *Executor
	router   *routing.Router
	registry *routing.Registry
	checker  *hostfuncs.CapabilityChecker
	stateMgr *state.Manager
}

// NewHost composes a Host from its five parts. executor, router's backing
// registry, and stateMgr should already share the same *routing.Registry
// and *state.Manager the executor itself was built with
// (host.WithEntityRegistry / host.WithStateManager) — Host does not own a
// second copy of either.
func NewHost(executor *Executor, router *routing.Router, registry *routing.Registry, checker *hostfuncs.CapabilityChecker, stateMgr *state.Manager) *Host {
	return &Host{
		executor: executor,
		router:   router,
		registry: registry,
		checker:  checker,
		stateMgr: stateMgr,
	}
}

// LoadPlugin compiles and initializes a plugin, then registers every domain
// method its manifest declares with the router so resolve/call can route to
// it. Manifest-declared entities are registered by the plugin itself during
// plugin.init, over the same entities.register_entity host call a running
// session would use — LoadPlugin wires only the method table, which has no
// other natural place to be declared from, and grants the capabilities the
// manifest requests.
func (h *Host) LoadPlugin(ctx context.Context, pluginID entities.PluginId, wasmBytes []byte, manifest entities.PluginManifest, config json.RawMessage) error {
	if err := h.executor.LoadPlugin(ctx, pluginID, wasmBytes, config); err != nil {
		return err
	}
	for _, decl := range manifest.Domains {
		for _, method := range decl.Methods {
			h.router.RegisterMethod(decl.Domain, method)
		}
	}
	if manifest.RequestedGrants != nil {
		h.checker.Grant(pluginID, manifest.RequestedGrants)
	}
	return nil
}

// UnloadPlugin tears down pluginID's compiled module along with every
// entity and state key it owns (Executor.UnloadPlugin already drops both);
// the router's method table is left alone since a re-load of the same
// plugin id should resolve the same way without re-declaring it.
func (h *Host) UnloadPlugin(ctx context.Context, pluginID entities.PluginId) error {
	return h.executor.UnloadPlugin(ctx, pluginID)
}

// Call implements §6's call(entity_id, method, params): resolve entityID to
// the plugin that owns it and deliver method/params as that plugin's next
// session invocation. This is the external counterpart to the
// entities.call_entity host service a guest uses internally — both resolve
// through the same *routing.Registry, so an embedder and a guest plugin see
// the same entity namespace.
func (h *Host) Call(ctx context.Context, entityID entities.EntityId, method string, params json.RawMessage) (json.RawMessage, error) {
	target, ok := h.registry.Get(entityID)
	if !ok {
		return nil, &hosterrors.RoutingUnmatchedError{Method: string(entityID)}
	}
	return h.executor.Call(ctx, target.PluginID, method, params)
}

// Resolve implements §6's resolve(domain, method, scope) -> entity_id: the
// two-phase domain/scope routing in C5. A singleton method resolves to
// exactly one entity; a broadcast method resolves to every matching entity,
// in which case the caller is expected to Call each one and apply the
// method's AggregationRule itself — Resolve only answers "which", not "and
// then combine how".
func (h *Host) Resolve(domain entities.Domain, method, scope string) ([]entities.EntityId, entities.MethodStrategy, error) {
	return h.router.Resolve(domain, method, scope)
}

// Snapshot implements §6's snapshot() -> bytes: a serialized copy of every
// plugin's locked/unlocked key-value state, suitable for Restore into a
// fresh Host built against an empty state.Manager.
func (h *Host) Snapshot() ([]byte, error) {
	return h.stateMgr.Snapshot()
}

// Restore implements §6's restore(bytes): replaces the state manager's
// entire partition set with the snapshot's contents. Restore does not
// reload plugins or re-populate the entity registry; it is state-only, the
// same boundary Manager.Snapshot/Restore already draw.
func (h *Host) Restore(data []byte) error {
	return h.stateMgr.Restore(data)
}

// SetPermission implements §6's set_permission(plugin, method, grant): it
// replaces pluginID's entire granted capability set. The spec names a
// single (method, grant) pair; this host's capability model grants a whole
// entities.GrantSet at a time (see DESIGN.md), so callers wanting to add
// one permission without clobbering the rest must read the plugin's current
// grants, extend them, and pass the result back in.
func (h *Host) SetPermission(pluginID entities.PluginId, grants *entities.GrantSet) error {
	if grants == nil {
		return fmt.Errorf("host: set_permission requires a non-nil grant set")
	}
	h.checker.Grant(pluginID, grants)
	return nil
}
