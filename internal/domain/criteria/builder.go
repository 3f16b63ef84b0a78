package criteria

import (
	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/metadata"
)

// BuildFilterMappings turns the criteria of cto into filter mappings rooted
// at root. Keys missing from merged, and entries with neither filter values
// nor a sort, are skipped.
func BuildFilterMappings(reg *metadata.Registry, cto *admin.CriteriaTransferObject, root string, merged map[string]*metadata.FieldMetadata) ([]FilterMapping, error) {
	var mappings []FilterMapping
	if cto == nil {
		return mappings, nil
	}
	for _, key := range cto.Keys() {
		md, ok := merged[key]
		if !ok {
			continue
		}
		fc, _ := cto.Lookup(key)
		if !fc.HasFilter() && fc.SortDirection == nil {
			continue
		}
		path, err := Resolve(reg, root, key)
		if err != nil {
			return nil, err
		}
		m := FilterMapping{
			FieldPath:        path,
			FullPropertyName: key,
			SortDirection:    fc.SortDirection,
			InheritedFrom:    md.InheritedFrom,
		}
		if fc.HasFilter() {
			m.FilterValues = append([]string(nil), fc.FilterValues...)
			m.Restriction = DefaultRestriction()
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

// AdornedTargetFilterMappings builds the join entity mappings of cto and
// appends the two identity mappings of the relationship: the linked side
// keyed by the collection name and the target side keyed by
// TargetCriteriaKey.
func AdornedTargetFilterMappings(reg *metadata.Registry, cto *admin.CriteriaTransferObject, merged map[string]*metadata.FieldMetadata, atl *admin.AdornedTargetList) ([]FilterMapping, error) {
	mappings, err := BuildFilterMappings(reg, cto, atl.JoinEntity, merged)
	if err != nil {
		return nil, err
	}

	linked, target := atl.Roles()
	sides := []struct {
		path string
		key  string
	}{
		{linked.Path(), atl.CollectionFieldName},
		{target.Path(), atl.TargetCriteriaKey()},
	}
	for _, side := range sides {
		path, err := Resolve(reg, atl.JoinEntity, side.path)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, FilterMapping{
			FieldPath:        path,
			FullPropertyName: side.path,
			FilterValues:     cto.Values(side.key),
			Restriction:      IdentityRestriction(),
		})
	}
	return mappings, nil
}
