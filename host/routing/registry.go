// Package routing implements the entity registry and router described by
// C5: the mapping from EntityId to the plugin and domain that own it, and
// the scope-specificity matching that resolves a domain method call to one
// or more target entities.
package routing

import (
	"fmt"
	"sync"

	"github.com/walletkit/pluginhost/domain/entities"
)

// Registration is one entry in the registry: an EntityId bound to the
// plugin that owns it, the domain it implements, and the scope patterns a
// router matches calls against.
type Registration struct {
	EntityID     entities.EntityId
	PluginID     entities.PluginId
	Domain       entities.Domain
	ScopingRules []string
}

// Registry is a concurrent EntityId -> Registration map, mirroring the
// teacher's sync.Map-based host/registry.Registry but keyed by entity
// identity instead of capability kind, and with duplicate-id rejection
// always on (the registry never silently overwrites an existing entity).
type Registry struct {
	mu         sync.RWMutex
	byEntity   map[entities.EntityId]*Registration
	byPlugin   map[entities.PluginId]map[entities.EntityId]bool
}

// NewRegistry creates an empty entity Registry.
func NewRegistry() *Registry {
	return &Registry{
		byEntity: make(map[entities.EntityId]*Registration),
		byPlugin: make(map[entities.PluginId]map[entities.EntityId]bool),
	}
}

// Register binds entityID (allocating one via entities.NewEntityId if the
// plugin did not request a specific id) to plugin, domain, and the given
// scoping rule patterns. One plugin may register many entities across many
// domains; an id that is already registered is rejected.
func (r *Registry) Register(plugin entities.PluginId, domain entities.Domain, entityID entities.EntityId, scopingRules []string) (entities.EntityId, error) {
	if !domain.Valid() {
		return "", fmt.Errorf("routing: unknown domain %q", domain)
	}
	if entityID == "" {
		entityID = entities.NewEntityId()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEntity[entityID]; exists {
		return "", fmt.Errorf("routing: entity %q is already registered", entityID)
	}

	r.byEntity[entityID] = &Registration{
		EntityID:     entityID,
		PluginID:     plugin,
		Domain:       domain,
		ScopingRules: scopingRules,
	}
	if r.byPlugin[plugin] == nil {
		r.byPlugin[plugin] = make(map[entities.EntityId]bool)
	}
	r.byPlugin[plugin][entityID] = true

	return entityID, nil
}

// Get returns the registration for entityID, if any.
func (r *Registry) Get(entityID entities.EntityId) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byEntity[entityID]
	return reg, ok
}

// InDomain returns every registration belonging to domain.
func (r *Registry) InDomain(domain entities.Domain) []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Registration
	for _, reg := range r.byEntity {
		if reg.Domain == domain {
			out = append(out, reg)
		}
	}
	return out
}

// UnregisterPlugin drops every entity owned by plugin. The registry only
// supports unregistration at this granularity: individual entities are
// never dropped except as a side effect of their owning plugin unloading.
func (r *Registry) UnregisterPlugin(plugin entities.PluginId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for entityID := range r.byPlugin[plugin] {
		delete(r.byEntity, entityID)
	}
	delete(r.byPlugin, plugin)
}
