package hostfuncs

import (
	"context"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
	"github.com/walletkit/pluginhost/host/routing"
)

// RoutingBundle returns the C3 "routing" host service: resolve, the
// read-only entry point a plugin can use to ask which entity a call would
// land on without actually making the call.
func RoutingBundle(router *routing.Router, checker *CapabilityChecker) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"resolve": func(ctx context.Context, payload []byte) ([]byte, error) {
				var req entities.ResolveRequest
				if errBytes, ok := decodeRequest(payload, &req); !ok {
					return errBytes, nil
				}
				plugin, _, err := callerIdentity(ctx)
				if err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}
				if err := checker.Check(plugin, entities.ServiceRouting, req.Method); err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}

				ids, strategy, err := router.Resolve(req.Domain, req.Method, req.Scope)
				if err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}
				return encodeResponse(entities.ResolveResponse{EntityIDs: ids, Strategy: strategy}), nil
			},
		},
	}
}
