package host_test

import (
	"testing"

	"github.com/walletkit/pluginhost/host"
	"github.com/walletkit/pluginhost/host/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// LoaderIntegrationSuite tests the Loader with full integration.
type LoaderIntegrationSuite struct {
	suite.Suite
	registry *registry.Registry
	loader   *host.Loader
}

func (s *LoaderIntegrationSuite) SetupTest() {
	reg := registry.NewRegistry(registry.WithStrictMode(false))
	s.registry = reg.(*registry.Registry)
	s.loader = host.NewLoader(host.WithRegistry(reg))
}

func (s *LoaderIntegrationSuite) TestValidManifest() {
	yaml := `
name: "test-plugin"
version: "1.0.0"
domains:
  - domain: vault
    methods:
      - name: withdraw
        strategy: singleton
capabilities:
  grants:
    - service: state
      pattern: "wallet:*"
    - service: entities
      pattern: "register"
`
	manifest, err := s.loader.LoadManifest([]byte(yaml), nil)
	s.Require().NoError(err)
	s.Equal("test-plugin", manifest.Name)
	s.Require().Len(manifest.Domains, 1)
	s.Equal("vault", string(manifest.Domains[0].Domain))
	s.Require().NotNil(manifest.RequestedGrants)
	s.Len(manifest.RequestedGrants.Grants, 2)
}

func (s *LoaderIntegrationSuite) TestManifestWithMultipleDomains() {
	yaml := `
name: "multi-domain-plugin"
version: "1.0.0"
domains:
  - domain: vault
    methods:
      - name: withdraw
        strategy: singleton
  - domain: provider
    methods:
      - name: quote
        strategy: broadcast
        aggregate: collect
`
	manifest, err := s.loader.LoadManifest([]byte(yaml), nil)
	s.Require().NoError(err)
	s.Len(manifest.Domains, 2)
	s.Equal("quote", manifest.Domains[1].Methods[0].Name)
}

func (s *LoaderIntegrationSuite) TestInvalidYAML() {
	yaml := `
name: "test-plugin"
version: "1.0.0"
domains: "not-a-list"
`
	_, err := s.loader.LoadManifest([]byte(yaml), nil)
	s.Require().Error(err)
}

func (s *LoaderIntegrationSuite) TestUnknownDomainRejected() {
	yaml := `
name: "test-plugin"
version: "1.0.0"
domains:
  - domain: not-a-real-domain
    methods:
      - name: foo
        strategy: singleton
`
	_, err := s.loader.LoadManifest([]byte(yaml), nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "unknown domain")
}

func (s *LoaderIntegrationSuite) TestBroadcastMethodRequiresAggregation() {
	yaml := `
name: "test-plugin"
version: "1.0.0"
domains:
  - domain: provider
    methods:
      - name: quote
        strategy: broadcast
`
	_, err := s.loader.LoadManifest([]byte(yaml), nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "aggregation rule")
}

func TestLoaderIntegrationSuite(t *testing.T) {
	suite.Run(t, new(LoaderIntegrationSuite))
}

func TestLoader_Integration(t *testing.T) {
	reg := registry.NewRegistry(registry.WithStrictMode(false))
	loader := host.NewLoader(host.WithRegistry(reg))

	t.Run("Valid Manifest", func(t *testing.T) {
		yaml := `
name: "test-plugin"
version: "1.0.0"
capabilities:
  grants:
    - service: state
      pattern: "wallet:*"
`
		manifest, err := loader.LoadManifest([]byte(yaml), nil)
		require.NoError(t, err)
		assert.Equal(t, "test-plugin", manifest.Name)
		assert.Len(t, manifest.RequestedGrants.Grants, 1)
	})

	t.Run("Invalid capability pattern rejected", func(t *testing.T) {
		yaml := `
name: "test-plugin"
version: "1.0.0"
capabilities:
  grants:
    - service: state
      pattern: "["
`
		_, err := loader.LoadManifest([]byte(yaml), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid pattern")
	})
}
