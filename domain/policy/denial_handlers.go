package policy

import (
	"log/slog"

	"github.com/walletkit/pluginhost/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.DenialHandler = (*StderrDenialHandler)(nil)
var _ ports.DenialHandler = (*NopDenialHandler)(nil)

// StderrDenialHandler logs denials via slog at warn level.
type StderrDenialHandler struct{}

func (h *StderrDenialHandler) OnDenial(service, key, reason string) {
	slog.Warn("permission denied", "service", service, "key", key, "reason", reason)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(service, key, reason string) {}
