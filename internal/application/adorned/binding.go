package adorned

import (
	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/criteria"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/domain/sequence"
	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// binding is an adorned target list resolved against the registry
type binding struct {
	list *admin.AdornedTargetList
	join *metadata.EntityType
	// instance is the type new join rows are created as and rows are
	// loaded as; it shares the join entity's table.
	instance *metadata.EntityType

	linked, target       admin.Side
	linkedRef, targetRef *metadata.Field

	// sort is nil for unsorted lists
	sort     *metadata.Field
	sortPath *criteria.FieldPath
}

func bind(reg *metadata.Registry, list *admin.AdornedTargetList) (*binding, error) {
	join, err := reg.Lookup(list.JoinEntity)
	if err != nil {
		return nil, err
	}
	instance, err := reg.Lookup(list.InstanceType())
	if err != nil {
		return nil, err
	}
	if !instance.IsA(join.Name) {
		return nil, shared.Wrapf(shared.ErrInvalidInput, "%s does not extend join entity %s", instance.Name, join.Name)
	}

	b := &binding{list: list, join: join, instance: instance}
	b.linked, b.target = list.Roles()
	if b.linkedRef, err = reference(instance, b.linked.ObjectPath); err != nil {
		return nil, err
	}
	if b.targetRef, err = reference(instance, b.target.ObjectPath); err != nil {
		return nil, err
	}

	if list.Sorted() {
		f, ok := instance.Field(list.SortField)
		if !ok || f.ValueKind != metadata.KindDecimal {
			return nil, shared.Wrapf(shared.ErrFieldNotAvailable, "sort field %s is not a decimal field of %s", list.SortField, instance.Name)
		}
		b.sort = f
		if b.sortPath, err = criteria.Resolve(reg, join.Name, list.SortField); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func reference(et *metadata.EntityType, name string) (*metadata.Field, error) {
	f, ok := et.Field(name)
	if !ok || f.Kind != metadata.KindReference {
		return nil, shared.Wrapf(shared.ErrFieldNotAvailable, "%s has no reference %s", et.Name, name)
	}
	return f, nil
}

// sibling reads the placement view of a join row
func (b *binding) sibling(row any) sequence.Sibling {
	id, _ := b.instance.IDField().Get(row)
	s := sequence.Sibling{Key: id}
	if v, ok := b.sort.Get(row); ok {
		s.Sequence, _ = v.(decimal.Decimal)
	}
	return s
}

// identityQuery selects the join rows linking any of linkedIDs to any of
// targetIDs. An empty side is left unconstrained.
func (b *binding) identityQuery(reg *metadata.Registry, linkedIDs, targetIDs []string, scope admin.Scope) (criteria.Query, error) {
	cto := admin.NewCriteriaTransferObject()
	if len(linkedIDs) > 0 {
		cto.Get(b.list.CollectionFieldName).SetFilterValues(linkedIDs...)
	}
	if len(targetIDs) > 0 {
		cto.Get(b.list.TargetCriteriaKey()).SetFilterValues(targetIDs...)
	}
	mappings, err := criteria.AdornedTargetFilterMappings(reg, cto, nil, b.list)
	if err != nil {
		return criteria.Query{}, err
	}
	return criteria.Query{Entity: b.instance.Name, Mappings: mappings, Scope: scope}, nil
}

// sortMapping orders siblings by ascending sort value
func (b *binding) sortMapping() criteria.FilterMapping {
	asc := admin.SortAscending
	return criteria.FilterMapping{
		FieldPath:        b.sortPath,
		FullPropertyName: b.list.SortField,
		SortDirection:    &asc,
	}
}

// skipsPayload reports whether a payload property is handled outside plain
// field population
func (b *binding) skipsPayload(name string) bool {
	switch name {
	case b.linked.Path(), b.target.Path(), admin.OriginalLinkedIDProperty, admin.OriginalTargetIDProperty:
		return true
	}
	return b.sort != nil && name == b.list.SortField
}
