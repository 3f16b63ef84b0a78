package admin

// AdornedTargetList configures a many-to-many relationship modelled through a
// join entity that carries its own fields, typically a sort value.
type AdornedTargetList struct {
	CollectionFieldName string `json:"collection_field_name" validate:"required"`
	LinkedObjectPath    string `json:"linked_object_path" validate:"required"`
	LinkedIDProperty    string `json:"linked_id_property" validate:"required"`
	TargetObjectPath    string `json:"target_object_path" validate:"required"`
	TargetIDProperty    string `json:"target_id_property" validate:"required"`
	JoinEntity          string `json:"join_entity" validate:"required"`
	JoinPolymorphicType string `json:"join_polymorphic_type,omitempty"`
	SortField           string `json:"sort_field,omitempty"`
	SortAscending       bool   `json:"sort_ascending"`
	// Inverse views the relationship from the target side: linked and target
	// roles are swapped for every operation.
	Inverse bool `json:"inverse"`
	Mutable bool `json:"mutable"`
}

// ItemType implements PerspectiveItem
func (a *AdornedTargetList) ItemType() PerspectiveItemType {
	return PerspectiveItemAdornedTargetList
}

// Side is one end of an adorned relationship
type Side struct {
	ObjectPath string
	IDProperty string
}

// Path returns the dotted property holding the side's id on the join entity
func (s Side) Path() string {
	return s.ObjectPath + "." + s.IDProperty
}

// Roles returns the linked and target sides after applying Inverse
func (a *AdornedTargetList) Roles() (linked, target Side) {
	linked = Side{ObjectPath: a.LinkedObjectPath, IDProperty: a.LinkedIDProperty}
	target = Side{ObjectPath: a.TargetObjectPath, IDProperty: a.TargetIDProperty}
	if a.Inverse {
		return target, linked
	}
	return linked, target
}

// InstanceType is the entity instantiated for new join rows
func (a *AdornedTargetList) InstanceType() string {
	if a.JoinPolymorphicType != "" {
		return a.JoinPolymorphicType
	}
	return a.JoinEntity
}

// Sorted reports whether the relationship maintains a sort field
func (a *AdornedTargetList) Sorted() bool {
	return a.SortField != ""
}

// TargetCriteriaKey is the criteria key constraining the target side
func (a *AdornedTargetList) TargetCriteriaKey() string {
	return a.CollectionFieldName + "Target"
}

// Collection binds an adorned target list to the ceiling entity it lists
type Collection struct {
	Name                string            `json:"name" validate:"required"`
	CeilingEntity       string            `json:"ceiling_entity" validate:"required"`
	List                AdornedTargetList `json:"list"`
	PopulateToOneFields bool              `json:"populate_to_one_fields"`
	IncludeFields       []string          `json:"include_fields,omitempty"`
	ExcludeFields       []string          `json:"exclude_fields,omitempty"`
}

// Perspective builds the persistence perspective for the collection
func (c *Collection) Perspective() *PersistencePerspective {
	list := c.List
	p := NewPersistencePerspective(&list)
	p.PopulateToOneFields = c.PopulateToOneFields
	p.IncludeFields = c.IncludeFields
	p.ExcludeFields = c.ExcludeFields
	p.ConfigurationKey = c.Name
	return p
}
