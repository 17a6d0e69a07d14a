package monitor

import (
	"sort"
	"sync"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// Registry maps live instance keys to their instances.
// A key is claimed before the instance exists so that duplicate creation
// notifications during the grace period are no-ops.
type Registry struct {
	mu        sync.Mutex
	instances map[domain.InstanceKey]*Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[domain.InstanceKey]*Instance)}
}

// Claim reserves key. Returns false if the key is already claimed or tracked.
func (r *Registry) Claim(key domain.InstanceKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[key]; ok {
		return false
	}
	r.instances[key] = nil
	return true
}

// Release drops a claim that never became an instance.
func (r *Registry) Release(key domain.InstanceKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[key]; ok && inst == nil {
		delete(r.instances, key)
	}
}

// Add binds a claimed key to its instance.
func (r *Registry) Add(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.Key()] = inst
}

// Remove forgets key. Used as the instance close hook.
func (r *Registry) Remove(key domain.InstanceKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, key)
}

// Get returns the instance tracked under key.
func (r *Registry) Get(key domain.InstanceKey) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[key]
	return inst, ok && inst != nil
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	return len(r.All())
}

// All returns live instances ordered by PID.
func (r *Registry) All() []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		if inst != nil {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		ka, kb := out[a].Key(), out[b].Key()
		if ka.PID != kb.PID {
			return ka.PID < kb.PID
		}
		return ka.Window < kb.Window
	})
	return out
}

// CloseAll tears down every live instance.
func (r *Registry) CloseAll() {
	for _, inst := range r.All() {
		_ = inst.Close()
	}
}
