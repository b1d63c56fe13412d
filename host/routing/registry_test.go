package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletkit/pluginhost/domain/entities"
)

func TestRegister_AllocatesIDWhenEmpty(t *testing.T) {
	r := NewRegistry()
	id, err := r.Register("plugin-1", entities.DomainVault, "", []string{"eip155:1:*"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	reg, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, entities.PluginId("plugin-1"), reg.PluginID)
	assert.Equal(t, entities.DomainVault, reg.Domain)
}

func TestRegister_RejectsUnknownDomain(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("plugin-1", entities.Domain("not-a-domain"), "", nil)
	require.Error(t, err)
}

func TestRegister_RejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("plugin-1", entities.DomainVault, "fixed-id", nil)
	require.NoError(t, err)

	_, err = r.Register("plugin-2", entities.DomainVault, "fixed-id", nil)
	require.Error(t, err)
}

func TestRegister_OnePluginManyEntities(t *testing.T) {
	r := NewRegistry()
	id1, err := r.Register("plugin-1", entities.DomainVault, "", nil)
	require.NoError(t, err)
	id2, err := r.Register("plugin-1", entities.DomainProvider, "", nil)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestUnregisterPlugin_DropsAllItsEntities(t *testing.T) {
	r := NewRegistry()
	id1, err := r.Register("plugin-1", entities.DomainVault, "", nil)
	require.NoError(t, err)
	id2, err := r.Register("plugin-1", entities.DomainProvider, "", nil)
	require.NoError(t, err)
	other, err := r.Register("plugin-2", entities.DomainVault, "", nil)
	require.NoError(t, err)

	r.UnregisterPlugin("plugin-1")

	_, ok := r.Get(id1)
	assert.False(t, ok)
	_, ok = r.Get(id2)
	assert.False(t, ok)
	_, ok = r.Get(other)
	assert.True(t, ok)
}

func TestInDomain_FiltersByDomain(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("plugin-1", entities.DomainVault, "", nil)
	require.NoError(t, err)
	_, err = r.Register("plugin-1", entities.DomainProvider, "", nil)
	require.NoError(t, err)

	vaultEntities := r.InDomain(entities.DomainVault)
	assert.Len(t, vaultEntities, 1)
}
