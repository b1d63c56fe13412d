package ports

// DenialHandler is called when a policy check denies a request.
// Implementations can log, collect metrics, or take other actions.
type DenialHandler interface {
	// OnDenial is called when a capability check denies a host-service call.
	// service is the §4.3 bucket ("state", "entities", "routing", ...),
	// key is the requested pattern target, reason is human-readable.
	OnDenial(service, key, reason string)
}
