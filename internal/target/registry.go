package target

import (
	"fmt"
	"sort"
)

// Registry holds all known application profiles.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry creates a registry with all default profiles.
func NewRegistry() *Registry {
	r := &Registry{
		profiles: make(map[string]Profile),
	}

	r.Register(NewFLStudioProfile())

	return r
}

// NewRegistryWithProfiles creates a registry with custom profiles (for testing).
func NewRegistryWithProfiles(profiles ...Profile) *Registry {
	r := &Registry{
		profiles: make(map[string]Profile),
	}
	for _, p := range profiles {
		r.Register(p)
	}
	return r
}

// Register adds a profile to the registry.
func (r *Registry) Register(p Profile) {
	r.profiles[p.ID()] = p
}

// Get returns a profile by ID.
func (r *Registry) Get(id string) (Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("unknown target: %s", id)
	}
	return p, nil
}

// GetAll returns all registered profiles ordered by ID.
func (r *Registry) GetAll() []Profile {
	result := make([]Profile, 0, len(r.profiles))
	for _, id := range r.List() {
		result = append(result, r.profiles[id])
	}
	return result
}

// List returns all profile IDs in sorted order.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
