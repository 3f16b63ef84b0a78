package admin

import (
	"github.com/erp/openadmin/internal/domain/metadata"
)

// Payload properties that widen identity lookups to rows recorded under a
// previous linked or target id in sandbox edit history.
const (
	OriginalLinkedIDProperty = "__originalLinkedId"
	OriginalTargetIDProperty = "__originalTargetId"
)

// PerspectiveItemType keys the relationship items of a perspective
type PerspectiveItemType string

const (
	PerspectiveItemAdornedTargetList PerspectiveItemType = "ADORNED_TARGET_LIST"
)

// PerspectiveItem is a relationship configuration carried by a perspective
type PerspectiveItem interface {
	ItemType() PerspectiveItemType
}

// PersistencePerspective describes how an entity is viewed for one request
type PersistencePerspective struct {
	Items                 map[PerspectiveItemType]PerspectiveItem
	IncludeFields         []string
	ExcludeFields         []string
	AdditionalForeignKeys []metadata.ForeignKey
	PopulateToOneFields   bool
	ConfigurationKey      string
}

// NewPersistencePerspective creates a perspective holding items
func NewPersistencePerspective(items ...PerspectiveItem) *PersistencePerspective {
	p := &PersistencePerspective{Items: make(map[PerspectiveItemType]PerspectiveItem)}
	for _, item := range items {
		p.Items[item.ItemType()] = item
	}
	return p
}

// AdornedTargetList returns the adorned target list item, if any
func (p *PersistencePerspective) AdornedTargetList() (*AdornedTargetList, bool) {
	if p == nil {
		return nil, false
	}
	item, ok := p.Items[PerspectiveItemAdornedTargetList]
	if !ok {
		return nil, false
	}
	atl, ok := item.(*AdornedTargetList)
	return atl, ok
}

// PersistencePackage describes one logical admin operation
type PersistencePackage struct {
	CeilingEntity  string
	Perspective    *PersistencePerspective
	Entity         *Entity
	CustomCriteria []string
	Scope          Scope
}
