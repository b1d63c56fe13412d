package hostfuncs

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
	"github.com/walletkit/pluginhost/pluglog"
)

// NowRequest is the (empty) params shape of host.now.
type NowRequest struct{}

// NowResponse is the result shape of host.now: the host's current time,
// RFC3339Nano-encoded by the standard time.Time JSON marshaler.
type NowResponse struct {
	Now time.Time `json:"now"`
}

// RandomBytesRequest is the params shape of host.random_bytes.
type RandomBytesRequest struct {
	Count int `json:"count" validate:"required,gt=0,lte=65536"`
}

// RandomBytesResponse is the result shape of host.random_bytes.
type RandomBytesResponse struct {
	Bytes []byte `json:"bytes"`
}

// LogRequest is the params shape of host.log: a structured log line a guest
// emits explicitly over RPC, as an alternative to writing to stderr.
type LogRequest struct {
	Level   string         `json:"level" validate:"required,oneof=debug info warn error"`
	Message string         `json:"message" validate:"required"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// LogResponse acknowledges a logged line.
type LogResponse struct {
	OK bool `json:"ok"`
}

// AccessorBundle returns the C3 "time", "random", and "log" host services:
// host-controlled accessors offered over RPC as an
// alternative to the WASI calls of the same purpose, for guests that prefer
// not to touch WASI directly.
func AccessorBundle(logger *slog.Logger, checker *CapabilityChecker) HostFuncBundle {
	if logger == nil {
		logger = slog.Default()
	}
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"now": func(ctx context.Context, payload []byte) ([]byte, error) {
				var req NowRequest
				if errBytes, ok := decodeRequest(payload, &req); !ok {
					return errBytes, nil
				}
				if _, _, err := callerIdentityChecked(ctx, checker, entities.ServiceTime, "now"); err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}
				return encodeResponse(NowResponse{Now: time.Now().UTC()}), nil
			},

			"random_bytes": func(ctx context.Context, payload []byte) ([]byte, error) {
				var req RandomBytesRequest
				if errBytes, ok := decodeRequest(payload, &req); !ok {
					return errBytes, nil
				}
				if _, _, err := callerIdentityChecked(ctx, checker, entities.ServiceRandom, "random_bytes"); err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}
				buf := make([]byte, req.Count)
				if _, err := rand.Read(buf); err != nil {
					return toJSON(NewInternalError(err.Error())), nil
				}
				return encodeResponse(RandomBytesResponse{Bytes: buf}), nil
			},

			"log": func(ctx context.Context, payload []byte) ([]byte, error) {
				var req LogRequest
				if errBytes, ok := decodeRequest(payload, &req); !ok {
					return errBytes, nil
				}
				plugin, session, err := callerIdentityChecked(ctx, checker, entities.ServiceLog, "log")
				if err != nil {
					return toJSON(hosterrors.ToErrorDetail(err)), nil
				}

				logCtx := pluglog.WithSession(ctx, plugin, session)
				args := make([]any, 0, len(req.Attrs)*2)
				for k, v := range req.Attrs {
					args = append(args, k, v)
				}
				logger.Log(logCtx, logLevel(req.Level), req.Message, args...)
				return encodeResponse(LogResponse{OK: true}), nil
			},
		},
	}
}

// callerIdentityChecked is callerIdentity plus a capability check, shared by
// the accessor handlers which all use the same (service, key) shape.
func callerIdentityChecked(ctx context.Context, checker *CapabilityChecker, service, key string) (entities.PluginId, entities.SessionId, error) {
	plugin, session, err := callerIdentity(ctx)
	if err != nil {
		return "", 0, err
	}
	if err := checker.Check(plugin, service, key); err != nil {
		return "", 0, err
	}
	return plugin, session, nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
