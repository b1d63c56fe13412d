// Package entities defines the core domain types of the plugin host runtime:
// plugins, entities, sessions, domain descriptors, and the JSON wire shapes
// that cross the host/guest boundary.
package entities
