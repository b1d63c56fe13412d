package hostfuncs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/host/routing"
)

func TestRoutingBundle_Resolve(t *testing.T) {
	registry := routing.NewRegistry()
	router := routing.NewRouter(registry)
	router.RegisterMethod(entities.DomainVault, entities.DomainMethod{
		Name:     "withdraw",
		Strategy: entities.StrategySingleton,
	})
	entityID, err := registry.Register("owner-plugin", entities.DomainVault, "", []string{"eip155:1:0xabc"})
	require.NoError(t, err)

	plugin := entities.PluginId("plugin-1")
	checker := testChecker(plugin, entities.CapabilityAllRouting)
	bundle := RoutingBundle(router, checker)

	reg, err := NewRegistry(WithBundle(bundle))
	require.NoError(t, err)

	ctx := withCaller(context.Background(), plugin, entities.SessionId(1))
	req, _ := json.Marshal(entities.ResolveRequest{Domain: entities.DomainVault, Method: "withdraw", Scope: "eip155:1:0xabc"})
	resp, err := reg.Invoke(ctx, "resolve", req)
	require.NoError(t, err)

	var out entities.ResolveResponse
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Equal(t, []entities.EntityId{entityID}, out.EntityIDs)
	assert.Equal(t, entities.StrategySingleton, out.Strategy)
}

func TestRoutingBundle_MethodNotFound(t *testing.T) {
	registry := routing.NewRegistry()
	router := routing.NewRouter(registry)

	plugin := entities.PluginId("plugin-1")
	checker := testChecker(plugin, entities.CapabilityAllRouting)
	bundle := RoutingBundle(router, checker)

	reg, err := NewRegistry(WithBundle(bundle))
	require.NoError(t, err)

	ctx := withCaller(context.Background(), plugin, entities.SessionId(1))
	req, _ := json.Marshal(entities.ResolveRequest{Domain: entities.DomainVault, Method: "withdraw"})
	resp, err := reg.Invoke(ctx, "resolve", req)
	require.NoError(t, err)

	var errResp entities.ErrorDetail
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, entities.ErrorKindMethodNotFound, errResp.Kind)
}
