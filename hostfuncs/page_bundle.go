package hostfuncs

import (
	"context"
	"encoding/json"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
)

// PageEventRequest is the params shape of host.page_event: an opaque event
// payload the dispatcher forwards unexamined to the configured frontend.
type PageEventRequest struct {
	Event json.RawMessage `json:"event" validate:"required"`
}

// PageEventResponse carries whatever the frontend returned for the event,
// again opaque to the dispatcher.
type PageEventResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
}

// PageSink is the configured frontend a plugin's page events are forwarded
// to. The dispatcher never interprets the event payload; it only enforces
// the capability check and passes it through.
type PageSink interface {
	Send(ctx context.Context, plugin entities.PluginId, event json.RawMessage) (json.RawMessage, error)
}

// PageBundle returns the C3 "page" host service: a single pass-through
// method for UI events.
func PageBundle(sink PageSink, checker *CapabilityChecker) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"page_event": func(ctx context.Context, payload []byte) ([]byte, error) {
				var req PageEventRequest
				if errBytes, ok := decodeRequest(payload, &req); !ok {
					return errBytes, nil
				}
				plugin, _, err := callerIdentity(ctx)
				if err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}
				if err := checker.Check(plugin, entities.ServicePage, "page_event"); err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}

				result, err := sink.Send(ctx, plugin, req.Event)
				if err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}
				return encodeResponse(PageEventResponse{Result: result}), nil
			},
		},
	}
}
