package metadata

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownEntity is returned when an entity name has not been registered
var ErrUnknownEntity = errors.New("unknown entity type")

// Registry holds every entity type known to the admin layer
type Registry struct {
	mu    sync.RWMutex
	types map[string]*EntityType
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*EntityType),
	}
}

// Register adds entity types. A parent must be registered before its subtypes.
func (r *Registry) Register(types ...*EntityType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, et := range types {
		if et == nil || et.Name == "" {
			return errors.New("entity type must have a name")
		}
		if _, exists := r.types[et.Name]; exists {
			return fmt.Errorf("entity type %s already registered", et.Name)
		}
		if et.parent != nil {
			if _, ok := r.types[et.parent.Name]; !ok {
				return fmt.Errorf("entity type %s: parent %s is not registered", et.Name, et.parent.Name)
			}
		}
		if et.IDField() == nil {
			return fmt.Errorf("entity type %s has no id field", et.Name)
		}
		r.types[et.Name] = et
		r.order = append(r.order, et.Name)
	}
	return nil
}

// Lookup returns the entity type registered under name
func (r *Registry) Lookup(name string) (*EntityType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	et, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return et, nil
}

// Polymorphic returns the ceiling type followed by every registered subtype,
// in registration order.
func (r *Registry) Polymorphic(name string) ([]*EntityType, error) {
	ceiling, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*EntityType{ceiling}
	for _, n := range r.order {
		et := r.types[n]
		if et != ceiling && et.IsA(name) {
			result = append(result, et)
		}
	}
	return result, nil
}
