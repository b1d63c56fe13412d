package pluglog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletkit/pluginhost/domain/entities"
)

func TestWireHandler_Handle_TagsSessionedContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewWireHandler(inner))

	ctx := WithSession(context.Background(), entities.PluginId("plugin-a"), entities.SessionId(7))
	logger.InfoContext(ctx, "guest stderr", "line", "boom")

	assert.Contains(t, buf.String(), `"plugin_id":"plugin-a"`)
	assert.Contains(t, buf.String(), `"session_id":7`)
	assert.Contains(t, buf.String(), `"line":"boom"`)
}

func TestWireHandler_Handle_UntaggedContextOmitsIdentity(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewWireHandler(inner))

	logger.InfoContext(context.Background(), "no session here")

	assert.NotContains(t, buf.String(), "plugin_id")
	assert.NotContains(t, buf.String(), "session_id")
}

func TestWireHandler_WithAttrs_PreservesWrapping(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	handler := NewWireHandler(inner).WithAttrs([]slog.Attr{slog.String("component", "wasi")})
	logger := slog.New(handler)

	ctx := WithSession(context.Background(), entities.PluginId("p1"), entities.SessionId(1))
	logger.InfoContext(ctx, "tagged")

	require.Contains(t, buf.String(), `"component":"wasi"`)
	assert.Contains(t, buf.String(), `"plugin_id":"p1"`)
}
