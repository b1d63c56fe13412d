package entities

// DomainDeclaration is the manifest-side declaration of one domain a
// plugin's entities implement, and the methods offered under it.
type DomainDeclaration struct {
	Domain  Domain         `json:"domain" yaml:"domain" jsonschema:"required"`
	Methods []DomainMethod `json:"methods" yaml:"methods" jsonschema:"required"`
}

// PluginManifest represents the root configuration of a plugin: identity,
// the domains/methods it implements, and the capabilities it requests.
type PluginManifest struct {
	RequestedGrants *GrantSet            `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Name            string               `json:"name" yaml:"name" jsonschema:"required"`
	Version         string               `json:"version" yaml:"version" jsonschema:"required"`
	Description     string               `json:"description,omitempty" yaml:"description,omitempty"`
	Domains         []DomainDeclaration  `json:"domains,omitempty" yaml:"domains,omitempty"`
}
