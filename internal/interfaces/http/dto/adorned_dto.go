package dto

import (
	"sort"

	"github.com/erp/openadmin/internal/domain/metadata"
)

// AddEntryRequest links a target to the linked row of the URL. Values carry
// the join entity fields, keyed by property name.
type AddEntryRequest struct {
	TargetID       string            `json:"target_id" binding:"required,max=64"`
	Values         map[string]string `json:"values"`
	CustomCriteria []string          `json:"custom_criteria,omitempty"`
}

// UpdateEntryRequest rewrites the join row of the URL. The original ids
// address a row recorded under previous ids in sandbox edit history.
type UpdateEntryRequest struct {
	Values           map[string]string `json:"values" binding:"required"`
	OriginalLinkedID string            `json:"original_linked_id,omitempty" binding:"omitempty,max=64"`
	OriginalTargetID string            `json:"original_target_id,omitempty" binding:"omitempty,max=64"`
	CustomCriteria   []string          `json:"custom_criteria,omitempty"`
}

// FetchQuery is the query string of a fetch. Filters are passed as
// filter[property]=value and sorts as sort=property or sort=-property.
type FetchQuery struct {
	FirstResult int      `form:"first_result" binding:"min=0"`
	MaxResults  int      `form:"max_results" binding:"min=0"`
	Sort        []string `form:"sort"`
	Target      string   `form:"target" binding:"omitempty,max=64"`
	Archived    bool     `form:"archived"`
}

// ForeignKeyResponse is the foreign key of a property
type ForeignKeyResponse struct {
	Property string `json:"property"`
	Entity   string `json:"entity"`
}

// PropertyMetadataResponse describes one join entity property
type PropertyMetadataResponse struct {
	Name          string              `json:"name"`
	Kind          string              `json:"kind"`
	Column        string              `json:"column,omitempty"`
	Target        string              `json:"target,omitempty"`
	Entity        string              `json:"entity"`
	InheritedFrom string              `json:"inherited_from,omitempty"`
	ForeignKey    *ForeignKeyResponse `json:"foreign_key,omitempty"`
}

// ToPropertyMetadataResponses converts merged properties, sorted by name
func ToPropertyMetadataResponses(props map[string]*metadata.FieldMetadata) []PropertyMetadataResponse {
	out := make([]PropertyMetadataResponse, 0, len(props))
	for _, md := range props {
		resp := PropertyMetadataResponse{
			Name:          md.Name,
			Entity:        md.Entity,
			InheritedFrom: md.InheritedFrom,
		}
		if md.Field != nil {
			resp.Kind = md.Field.Kind.String()
			resp.Column = md.Field.Column
			resp.Target = md.Field.Target
		}
		if md.ForeignKey != nil {
			resp.ForeignKey = &ForeignKeyResponse{Property: md.ForeignKey.Property, Entity: md.ForeignKey.Entity}
		}
		out = append(out, resp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
