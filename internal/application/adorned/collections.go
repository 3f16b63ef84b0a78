package adorned

import (
	"fmt"
	"slices"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// Collections holds the adorned target list collections exposed to callers,
// keyed by name. Every collection is validated against the registry when it
// is added.
type Collections struct {
	registry *metadata.Registry
	validate *validator.Validate
	byName   map[string]admin.Collection
}

// NewCollections validates and registers cols
func NewCollections(reg *metadata.Registry, cols ...admin.Collection) (*Collections, error) {
	c := &Collections{
		registry: reg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		byName:   make(map[string]admin.Collection),
	}
	for _, col := range cols {
		if err := c.Add(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add validates col and registers it under its name
func (c *Collections) Add(col admin.Collection) error {
	if err := c.validate.Struct(col); err != nil {
		return fmt.Errorf("invalid collection %q: %w", col.Name, err)
	}
	if _, exists := c.byName[col.Name]; exists {
		return fmt.Errorf("collection %q is already registered", col.Name)
	}
	if _, err := c.registry.Lookup(col.CeilingEntity); err != nil {
		return fmt.Errorf("invalid collection %q: %w", col.Name, err)
	}
	list := col.List
	b, err := bind(c.registry, &list)
	if err != nil {
		return fmt.Errorf("invalid collection %q: %w", col.Name, err)
	}
	if b.targetRef.Target != col.CeilingEntity {
		ceiling, _ := c.registry.Lookup(col.CeilingEntity)
		if !ceiling.IsA(b.targetRef.Target) {
			return fmt.Errorf("invalid collection %q: target %s does not reference %s", col.Name, b.target.ObjectPath, col.CeilingEntity)
		}
	}
	c.byName[col.Name] = col
	return nil
}

// Get returns the collection registered under name
func (c *Collections) Get(name string) (admin.Collection, error) {
	col, ok := c.byName[name]
	if !ok {
		return admin.Collection{}, shared.Wrapf(shared.ErrNotFound, "collection %q", name)
	}
	return col, nil
}

// Names returns the registered collection names in lexical order
func (c *Collections) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
