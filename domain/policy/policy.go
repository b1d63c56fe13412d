package policy

import (
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/ports"
)

// policyConfig holds configuration for the Policy engine.
type policyConfig struct {
	denialHandler ports.DenialHandler
}

func defaultPolicyConfig() policyConfig {
	return policyConfig{
		denialHandler: &StderrDenialHandler{},
	}
}

// PolicyOption configures the Policy.
type PolicyOption func(*policyConfig)

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) PolicyOption {
	return func(c *policyConfig) {
		c.denialHandler = h
	}
}

// Policy implements the Policy interface with stateless enforcement. Per the
// §4.3 capability table: a host-service call of the form service:key is
// permitted only if some granted capability's Service matches and its
// Pattern (a doublestar glob) matches key.
type Policy struct {
	config policyConfig
	cache  sync.Map // key: *entities.GrantSet, value: []entities.Capability (validated patterns only)
}

// NewPolicy creates a new Policy.
func NewPolicy(opts ...PolicyOption) ports.Policy {
	cfg := defaultPolicyConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Policy{config: cfg}
}

func (p *Policy) compiled(grants *entities.GrantSet) []entities.Capability {
	if grants.IsEmpty() {
		return nil
	}
	if v, ok := p.cache.Load(grants); ok {
		return v.([]entities.Capability)
	}

	valid := make([]entities.Capability, 0, len(grants.Grants))
	for _, g := range grants.Grants {
		if doublestar.ValidatePattern(g.Pattern) {
			valid = append(valid, g)
		}
	}
	p.cache.Store(grants, valid)
	return valid
}

// Check implements ports.Policy.
func (p *Policy) Check(service, key string, grants *entities.GrantSet) bool {
	for _, g := range p.compiled(grants) {
		if g.Service != service {
			continue
		}
		if matched, _ := doublestar.Match(g.Pattern, key); matched {
			return true
		}
	}
	p.config.denialHandler.OnDenial(service, key, "no matching capability grant")
	return false
}
