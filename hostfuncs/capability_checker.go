package hostfuncs

import (
	"context"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
	"github.com/walletkit/pluginhost/domain/policy"
	"github.com/walletkit/pluginhost/domain/ports"
)

// CapabilityChecker checks whether a plugin's granted capabilities permit a
// host-service call of the form service:key. It is a thin per-plugin wrapper
// around a single stateless ports.Policy, keyed by plugin id.
type CapabilityChecker struct {
	policy ports.Policy
	grants map[entities.PluginId]*entities.GrantSet
}

// NewCapabilityChecker creates a capability checker for the given plugin
// grant sets, checking them against the default Policy.
func NewCapabilityChecker(grants map[entities.PluginId]*entities.GrantSet, opts ...policy.PolicyOption) *CapabilityChecker {
	return &CapabilityChecker{
		policy: policy.NewPolicy(opts...),
		grants: grants,
	}
}

// Check verifies that plugin has been granted service:key.
func (c *CapabilityChecker) Check(plugin entities.PluginId, service, key string) error {
	grants, ok := c.grants[plugin]
	if !ok || grants == nil {
		return &hosterrors.PermissionDeniedError{Service: service, Key: key}
	}
	if c.policy.Check(service, key, grants) {
		return nil
	}
	return &hosterrors.PermissionDeniedError{Service: service, Key: key}
}

// Grant replaces the grant set for a plugin, e.g. after a set_permission call.
func (c *CapabilityChecker) Grant(plugin entities.PluginId, grants *entities.GrantSet) {
	c.grants[plugin] = grants
}

type capabilityContextKey struct {
	name string
}

var (
	pluginIDContextKey  = &capabilityContextKey{name: "plugin_id"}
	sessionIDContextKey = &capabilityContextKey{name: "session_id"}
)

// WithCapabilityPluginID adds the calling plugin's id to the context.
func WithCapabilityPluginID(ctx context.Context, id entities.PluginId) context.Context {
	return context.WithValue(ctx, pluginIDContextKey, id)
}

// CapabilityPluginIDFromContext retrieves the calling plugin's id from the context.
func CapabilityPluginIDFromContext(ctx context.Context) (entities.PluginId, bool) {
	id, ok := ctx.Value(pluginIDContextKey).(entities.PluginId)
	return id, ok
}

// WithSessionID stamps the dispatching session's id onto the context. Per
// §4.3, a guest never supplies its own (PluginId, SessionId) — the
// dispatcher derives both from which session's stdout the call arrived on
// and stamps them before a handler ever sees the request.
func WithSessionID(ctx context.Context, id entities.SessionId) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, id)
}

// SessionIDFromContext retrieves the dispatching session's id from the context.
func SessionIDFromContext(ctx context.Context) (entities.SessionId, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(entities.SessionId)
	return id, ok
}
