package metadata

import (
	"reflect"
	"sync"
)

// Registry maps entity kinds to their descriptors. Declarations are
// expected to complete before entities are saved or queried.
type Registry struct {
	mu       sync.RWMutex
	entities map[Key]*EntityDescriptor
	order    []Key
}

func NewRegistry() *Registry {
	return &Registry{entities: make(map[Key]*EntityDescriptor)}
}

var defaultRegistry = sync.OnceValue(NewRegistry)

// Default returns the process-wide registry. It is created on first use
// and never replaced.
func Default() *Registry {
	return defaultRegistry()
}

// GetOrCreate returns the descriptor for key, creating an empty one labelled
// with the kind's name when none exists.
func (r *Registry) GetOrCreate(key Key) *EntityDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(key)
}

func (r *Registry) getOrCreateLocked(key Key) *EntityDescriptor {
	if d, ok := r.entities[key]; ok {
		return d
	}
	d := newEntityDescriptor(key)
	r.entities[key] = d
	r.order = append(r.order, key)
	return d
}

// BindType records the Go type backing a struct kind.
func (r *Registry) BindType(key Key, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreateLocked(key).Type = t
}

func (r *Registry) SetLabel(key Key, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreateLocked(key).Label = label
}

// AddProperty inserts or replaces the property with the same key.
func (r *Registry) AddProperty(key Key, p PropertyDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreateLocked(key).putProperty(&p)
}

// AddRelationship inserts or replaces the relationship with the same key.
func (r *Registry) AddRelationship(key Key, rel RelationshipDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreateLocked(key).putRelationship(&rel)
}

func (r *Registry) Descriptor(key Key) (*EntityDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entities[key]
	return d, ok
}

// Lookup is Descriptor for callers that cannot proceed without metadata.
func (r *Registry) Lookup(key Key) (*EntityDescriptor, error) {
	d, ok := r.Descriptor(key)
	if !ok {
		return nil, &MissingMetadataError{Kind: key.Name(), Key: key}
	}
	return d, nil
}

func (r *Registry) PropertyKeys(key Key) []string {
	d, ok := r.Descriptor(key)
	if !ok {
		return nil
	}
	return d.PropertyKeys()
}

func (r *Registry) RelationshipKeys(key Key) []string {
	d, ok := r.Descriptor(key)
	if !ok {
		return nil
	}
	return d.RelationshipKeys()
}

// Entities returns every descriptor in the order kinds were first declared.
func (r *Registry) Entities() []*EntityDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EntityDescriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entities[key])
	}
	return out
}

// ByLabel finds the first declared kind carrying label.
func (r *Registry) ByLabel(label string) (*EntityDescriptor, bool) {
	for _, d := range r.Entities() {
		if d.Label == label {
			return d, true
		}
	}
	return nil, false
}

// ResolveTarget evaluates a relationship's resolver and looks up the target.
func (r *Registry) ResolveTarget(rel *RelationshipDescriptor) (*EntityDescriptor, error) {
	if rel == nil || rel.Target == nil {
		return nil, &MissingMetadataError{Kind: "<nil relationship target>"}
	}
	return r.Lookup(rel.Target())
}
