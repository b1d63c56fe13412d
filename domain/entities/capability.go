package entities

// Capability names one host service operation a plugin is permitted to
// invoke. Service is the §4.3 host-service menu bucket ("state", "entities",
// "routing", "page", "time", "random", "log"); Pattern is a doublestar glob
// matched against the bucket's key (the state Key, the target EntityId, or
// the domain method name, depending on Service).
type Capability struct {
	Service string `json:"service" yaml:"service"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// NewCapability creates a Capability granting Pattern within Service.
func NewCapability(service, pattern string) Capability {
	return Capability{Service: service, Pattern: pattern}
}

// String returns the capability in "service:pattern" format.
func (c Capability) String() string {
	return c.Service + ":" + c.Pattern
}

// Host service buckets a capability may name.
const (
	ServiceState    = "state"
	ServiceEntities = "entities"
	ServiceRouting  = "routing"
	ServicePage     = "page"
	ServiceTime     = "time"
	ServiceRandom   = "random"
	ServiceLog      = "log"
)

// Broad, commonly requested capabilities, analogous to a "grant everything
// in this bucket" default.
var (
	CapabilityAllState    = NewCapability(ServiceState, "**")
	CapabilityAllEntities = NewCapability(ServiceEntities, "**")
	CapabilityAllRouting  = NewCapability(ServiceRouting, "**")
)
