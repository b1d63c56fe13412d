package extractor

import (
	"fmt"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/ports"
)

// ManifestExtractor resolves the capability grants a plugin manifest
// requests, after optional templating of the raw manifest bytes.
type ManifestExtractor struct {
	parser   ports.ManifestParser
	renderer ports.TemplateEngine
	manifest []byte
}

// ManifestExtractorOption configures the ManifestExtractor.
type ManifestExtractorOption func(*ManifestExtractor)

// WithParser sets the manifest parser.
func WithParser(p ports.ManifestParser) ManifestExtractorOption {
	return func(e *ManifestExtractor) {
		e.parser = p
	}
}

// WithTemplateEngine sets the template engine.
func WithTemplateEngine(t ports.TemplateEngine) ManifestExtractorOption {
	return func(e *ManifestExtractor) {
		e.renderer = t
	}
}

// NewManifestExtractor creates a new ManifestExtractor for the given manifest.
func NewManifestExtractor(manifest []byte, opts ...ManifestExtractorOption) *ManifestExtractor {
	e := &ManifestExtractor{
		manifest: manifest,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract renders the manifest (if a template engine is configured), parses
// it, and returns the capabilities it requests. A manifest that requests no
// capabilities yields an empty, non-nil GrantSet.
func (e *ManifestExtractor) Extract(config map[string]interface{}) (*entities.GrantSet, error) {
	if e.parser == nil {
		return nil, fmt.Errorf("manifest parser is required")
	}

	data := e.manifest
	if e.renderer != nil {
		var err error
		data, err = e.renderer.Render(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to render manifest: %w", err)
		}
	}

	manifest, err := e.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if manifest.RequestedGrants == nil {
		return &entities.GrantSet{}, nil
	}

	return manifest.RequestedGrants, nil
}
