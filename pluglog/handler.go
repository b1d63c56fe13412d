// Package pluglog provides the host's structured logging sink (§2A): a
// slog.Handler that tags every record it sees with the plugin and session
// that produced it, shared between captured guest stderr and the
// entities.log host service so a (plugin, session)-scoped line looks the
// same regardless of which path delivered it.
package pluglog

import (
	"context"
	"log/slog"

	"github.com/walletkit/pluginhost/domain/entities"
)

type contextKey struct{ name string }

var sessionContextKey = &contextKey{name: "pluglog_session"}

type sessionTag struct {
	plugin  entities.PluginId
	session entities.SessionId
}

// WithSession tags ctx with plugin and session so any log call made through
// it is attributed by WireHandler without every call site passing
// plugin_id/session_id by hand.
func WithSession(ctx context.Context, plugin entities.PluginId, session entities.SessionId) context.Context {
	return context.WithValue(ctx, sessionContextKey, sessionTag{plugin: plugin, session: session})
}

func sessionFromContext(ctx context.Context) (sessionTag, bool) {
	tag, ok := ctx.Value(sessionContextKey).(sessionTag)
	return tag, ok
}

// WireHandler wraps an inner slog.Handler, adding plugin_id/session_id
// attributes to any record logged through a WithSession-tagged context. It
// implements slog.Handler by delegating everything else to inner, the same
// wrap-and-defer shape the teacher's WasmLogHandler used for its own
// Enabled/WithAttrs/WithGroup pass-through.
type WireHandler struct {
	inner slog.Handler
}

// NewWireHandler wraps inner.
func NewWireHandler(inner slog.Handler) *WireHandler {
	return &WireHandler{inner: inner}
}

func (h *WireHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *WireHandler) Handle(ctx context.Context, record slog.Record) error {
	if tag, ok := sessionFromContext(ctx); ok {
		record.AddAttrs(
			slog.String("plugin_id", string(tag.plugin)),
			slog.Uint64("session_id", uint64(tag.session)),
		)
	}
	return h.inner.Handle(ctx, record)
}

func (h *WireHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &WireHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *WireHandler) WithGroup(name string) slog.Handler {
	return &WireHandler{inner: h.inner.WithGroup(name)}
}
