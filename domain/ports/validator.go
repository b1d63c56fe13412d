package ports

import "github.com/walletkit/pluginhost/domain/entities"

// CapabilityValidator validates capability configurations against schemas.
type CapabilityValidator interface {
	// Validate checks the manifest capabilities against registered schemas.
	Validate(manifest *entities.PluginManifest) (*entities.ValidationResult, error)
}
