package ports

import "github.com/walletkit/pluginhost/domain/entities"

// Policy enforces capability grants against host-service requests before
// the dispatcher (C3) executes a side-effectful call.
type Policy interface {
	// Check reports whether service:key is permitted by grants, e.g.
	// Check("state", "cache", grants) for a call to lock_key("cache").
	Check(service, key string, grants *entities.GrantSet) bool
}
