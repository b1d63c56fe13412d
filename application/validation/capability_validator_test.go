package validation_test

import (
	"testing"

	"github.com/walletkit/pluginhost/application/validation"
	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRegistry struct {
	schemas map[string]string
}

func (m *mockRegistry) Register(name string, capability interface{}) error { return nil }
func (m *mockRegistry) GetSchema(name string) (string, bool) {
	s, ok := m.schemas[name]
	return s, ok
}
func (m *mockRegistry) List() []string { return nil }

func validManifest() *entities.PluginManifest {
	return &entities.PluginManifest{
		Name:    "test-plugin",
		Version: "1.0.0",
		Domains: []entities.DomainDeclaration{
			{
				Domain: entities.DomainVault,
				Methods: []entities.DomainMethod{
					{Name: "withdraw", Strategy: entities.StrategySingleton},
				},
			},
		},
		RequestedGrants: &entities.GrantSet{
			Grants: []entities.Capability{
				entities.NewCapability("state", "wallet:*"),
			},
		},
	}
}

func TestCapabilityValidator_Validate(t *testing.T) {
	validator := validation.NewCapabilityValidator(&mockRegistry{})

	t.Run("valid manifest", func(t *testing.T) {
		res, err := validator.Validate(validManifest())
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Empty(t, res.Errors)
	})

	t.Run("missing name and version", func(t *testing.T) {
		m := validManifest()
		m.Name = ""
		m.Version = ""
		res, err := validator.Validate(m)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Len(t, res.Errors, 2)
	})

	t.Run("unknown domain", func(t *testing.T) {
		m := validManifest()
		m.Domains[0].Domain = "not-a-domain"
		res, err := validator.Validate(m)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0].Message, "unknown domain")
	})

	t.Run("duplicate domain declaration", func(t *testing.T) {
		m := validManifest()
		m.Domains = append(m.Domains, m.Domains[0])
		res, err := validator.Validate(m)
		require.NoError(t, err)
		assert.False(t, res.Valid)
	})

	t.Run("broadcast method without aggregation rule", func(t *testing.T) {
		m := validManifest()
		m.Domains[0].Methods[0].Strategy = entities.StrategyBroadcast
		res, err := validator.Validate(m)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0].Message, "aggregation rule")
	})

	t.Run("unknown routing strategy", func(t *testing.T) {
		m := validManifest()
		m.Domains[0].Methods[0].Strategy = "sideways"
		res, err := validator.Validate(m)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0].Message, "unknown routing strategy")
	})

	t.Run("invalid capability pattern", func(t *testing.T) {
		m := validManifest()
		m.RequestedGrants.Grants[0].Pattern = "["
		res, err := validator.Validate(m)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0].Message, "invalid pattern")
	})

	t.Run("duplicate capability", func(t *testing.T) {
		m := validManifest()
		m.RequestedGrants.Grants = append(m.RequestedGrants.Grants, m.RequestedGrants.Grants[0])
		res, err := validator.Validate(m)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0].Message, "duplicate capability")
	})
}
