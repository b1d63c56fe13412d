package hostfuncs

import (
	"context"
	"encoding/json"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
	"github.com/walletkit/pluginhost/host/routing"
)

// EntityCaller dispatches a resolved domain method call into the target
// entity's owning plugin. The C1 executor implements this by starting (or
// reusing) a session for the target plugin and delivering the call over its
// JSON-RPC transport; that session lifecycle lives in the executor, not the
// dispatcher.
type EntityCaller interface {
	Call(ctx context.Context, target entities.PluginId, method string, params json.RawMessage) (json.RawMessage, error)
}

// EntityBundle returns the C3 "entities" host service: register_entity and
// call_entity, backed directly by the host's *routing.Registry.
func EntityBundle(registry *routing.Registry, caller EntityCaller, checker *CapabilityChecker) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"register_entity": func(ctx context.Context, payload []byte) ([]byte, error) {
				var req entities.RegisterEntityRequest
				if errBytes, ok := decodeRequest(payload, &req); !ok {
					return errBytes, nil
				}
				plugin, _, err := callerIdentity(ctx)
				if err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}
				if err := checker.Check(plugin, entities.ServiceEntities, req.EntityID); err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}

				var rules []string
				if len(req.ScopingRules) > 0 {
					if err := json.Unmarshal(req.ScopingRules, &rules); err != nil {
						return toJSON(NewBadParamsError("scoping_rules must be a JSON array of glob patterns")), nil
					}
				}

				id, err := registry.Register(plugin, req.Domain, entities.EntityId(req.EntityID), rules)
				if err != nil {
					return toJSON(NewBadParamsError(err.Error())), nil
				}
				return encodeResponse(entities.RegisterEntityResponse{EntityID: id}), nil
			},

			"call_entity": func(ctx context.Context, payload []byte) ([]byte, error) {
				var req entities.CallEntityRequest
				if errBytes, ok := decodeRequest(payload, &req); !ok {
					return errBytes, nil
				}
				plugin, _, err := callerIdentity(ctx)
				if err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}
				if err := checker.Check(plugin, entities.ServiceEntities, req.EntityID); err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}

				target, ok := registry.Get(entities.EntityId(req.EntityID))
				if !ok {
					return toJSON((&hosterrors.RoutingUnmatchedError{Method: req.EntityID}).ToErrorDetail()), nil
				}

				result, err := caller.Call(ctx, target.PluginID, req.Method, req.Params)
				if err != nil {
					return encodeResponse(entities.CallEntityResponse{Error: hosterrors.ToErrorDetail(err)}), nil
				}
				return encodeResponse(entities.CallEntityResponse{Result: result}), nil
			},
		},
	}
}
