package adorned

import (
	"context"
	"fmt"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/metadata"
)

// converter flattens join rows and their target rows into entity DTOs. Join
// properties keep their names; target properties carry the target object
// path prefix. References are written as <reference>.<id property>.
type converter struct {
	registry *metadata.Registry
	dao      DataAccess
	b        *binding

	joinProps   map[string]*metadata.FieldMetadata
	targetProps map[string]*metadata.FieldMetadata
	joinKeys    []string
	targetKeys  []string

	// related rows already loaded, keyed by entity and id
	related map[string]any
}

func newConverter(reg *metadata.Registry, dao DataAccess, b *binding, joinProps, targetProps map[string]*metadata.FieldMetadata) *converter {
	return &converter{
		registry:    reg,
		dao:         dao,
		b:           b,
		joinProps:   joinProps,
		targetProps: targetProps,
		joinKeys:    metadata.SortedKeys(joinProps),
		targetKeys:  metadata.SortedKeys(targetProps),
		related:     make(map[string]any),
	}
}

func (c *converter) toEntity(ctx context.Context, row any) (*admin.Entity, error) {
	e := &admin.Entity{Type: []string{c.b.instance.Name}}
	if err := c.addProperties(e, c.b.instance, row, c.joinKeys, c.joinProps, nil); err != nil {
		return nil, err
	}

	targetID, ok := c.b.targetRef.Get(row)
	if !ok {
		return nil, fmt.Errorf("failed to read %s of %s row", c.b.targetRef.Name, c.b.instance.Name)
	}
	targetType, err := c.registry.Lookup(c.b.targetRef.Target)
	if err != nil {
		return nil, err
	}
	target, err := c.load(ctx, targetType.Name, targetID)
	if err != nil {
		return nil, err
	}
	via := func(md *metadata.FieldMetadata) (any, *metadata.EntityType, error) {
		refID, ok := md.Via.Get(target)
		if !ok || isZeroID(refID) {
			return nil, nil, nil
		}
		refType, err := c.registry.Lookup(md.Via.Target)
		if err != nil {
			return nil, nil, err
		}
		ref, err := c.load(ctx, refType.Name, refID)
		return ref, refType, err
	}
	if err := c.addProperties(e, targetType, target, c.targetKeys, c.targetProps, via); err != nil {
		return nil, err
	}
	return e, nil
}

// addProperties writes the values of props read from row. Properties whose
// field does not exist on the row's type are skipped; they belong to another
// polymorphic type.
func (c *converter) addProperties(e *admin.Entity, et *metadata.EntityType, row any, keys []string,
	props map[string]*metadata.FieldMetadata, via func(*metadata.FieldMetadata) (any, *metadata.EntityType, error)) error {
	for _, key := range keys {
		md := props[key]
		src, srcType := row, et
		if md.Via != nil {
			if via == nil {
				continue
			}
			var err error
			if src, srcType, err = via(md); err != nil {
				return err
			}
			if src == nil {
				continue
			}
		}

		f, ok := srcType.Field(md.Field.Name)
		if !ok {
			continue
		}
		v, ok := f.Get(src)
		if !ok {
			continue
		}

		name := key
		if f.Kind == metadata.KindReference {
			refType, err := c.registry.Lookup(f.Target)
			if err != nil {
				return err
			}
			name = key + "." + refType.IDField().Name
		}
		e.AddProperty(admin.Property{Name: name, Value: f.Format(v)})
	}
	return nil
}

func (c *converter) load(ctx context.Context, entity string, id any) (any, error) {
	key := fmt.Sprintf("%s#%v", entity, id)
	if row, ok := c.related[key]; ok {
		return row, nil
	}
	row, err := c.dao.Retrieve(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	c.related[key] = row
	return row, nil
}

func isZeroID(id any) bool {
	switch v := id.(type) {
	case nil:
		return true
	case int64:
		return v == 0
	case string:
		return v == ""
	}
	return false
}
