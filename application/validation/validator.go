// Package validation provides validation logic for plugin manifests and capabilities.
package validation

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/ports"
)

// CapabilityValidator validates a plugin manifest's domain declarations and
// requested capability grants. Every domain method is checked on structure
// alone: a per-method parameter schema is looked up in the
// ports.CapabilityRegistry when one is configured, but the manifest is not
// validated against it.
type CapabilityValidator struct {
	registry ports.CapabilityRegistry
}

// NewCapabilityValidator creates a new validator.
func NewCapabilityValidator(registry ports.CapabilityRegistry) ports.CapabilityValidator {
	return &CapabilityValidator{registry: registry}
}

// Validate checks the manifest's domains and requested grants for structural
// correctness.
func (v *CapabilityValidator) Validate(manifest *entities.PluginManifest) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}

	if manifest.Name == "" {
		v.fail(result, "name", "manifest is missing a name")
	}
	if manifest.Version == "" {
		v.fail(result, "version", "manifest is missing a version")
	}

	seenDomains := make(map[entities.Domain]bool)
	for _, decl := range manifest.Domains {
		if !decl.Domain.Valid() {
			v.fail(result, "domains", fmt.Sprintf("unknown domain %q", decl.Domain))
			continue
		}
		if seenDomains[decl.Domain] {
			v.fail(result, "domains", fmt.Sprintf("duplicate domain declaration %q", decl.Domain))
			continue
		}
		seenDomains[decl.Domain] = true

		seenMethods := make(map[string]bool)
		for _, m := range decl.Methods {
			if m.Name == "" {
				v.fail(result, "domains", fmt.Sprintf("%s: method missing a name", decl.Domain))
				continue
			}
			if seenMethods[m.Name] {
				v.fail(result, "domains", fmt.Sprintf("%s: duplicate method %q", decl.Domain, m.Name))
				continue
			}
			seenMethods[m.Name] = true

			switch m.Strategy {
			case entities.StrategySingleton:
			case entities.StrategyBroadcast:
				if m.Aggregate == "" {
					v.fail(result, "domains", fmt.Sprintf("%s.%s: broadcast method must declare an aggregation rule", decl.Domain, m.Name))
				}
			default:
				v.fail(result, "domains", fmt.Sprintf("%s.%s: unknown routing strategy %q", decl.Domain, m.Name, m.Strategy))
			}

			if v.registry != nil {
				qualified := string(decl.Domain) + "." + m.Name
				if _, ok := v.registry.GetSchema(qualified); !ok {
					continue // no registered param schema; a found one is not applied either
				}
			}
		}
	}

	if manifest.RequestedGrants != nil {
		seen := make(map[entities.Capability]bool)
		for _, cap := range manifest.RequestedGrants.Grants {
			if cap.Service == "" {
				v.fail(result, "capabilities", "capability missing service")
				continue
			}
			if seen[cap] {
				v.fail(result, "capabilities", fmt.Sprintf("duplicate capability: %s", cap))
				continue
			}
			seen[cap] = true

			if !doublestar.ValidatePattern(cap.Pattern) {
				v.fail(result, "capabilities", fmt.Sprintf("invalid pattern for %s: %q", cap.Service, cap.Pattern))
			}
		}
	}

	return result, nil
}

func (v *CapabilityValidator) fail(result *entities.ValidationResult, field, message string) {
	result.Valid = false
	result.Errors = append(result.Errors, entities.ValidationError{Field: field, Message: message})
}
