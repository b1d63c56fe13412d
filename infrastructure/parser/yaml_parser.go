// Package parser provides functionality for parsing plugin manifests.
package parser

import (
	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlManifestParser implements ManifestParser for YAML.
type YamlManifestParser struct{}

// NewYamlManifestParser creates a new YamlManifestParser.
func NewYamlManifestParser() ports.ManifestParser {
	return &YamlManifestParser{}
}

// Parse unmarshals YAML bytes into a PluginManifest struct.
func (p *YamlManifestParser) Parse(data []byte) (*entities.PluginManifest, error) {
	var manifest entities.PluginManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}
