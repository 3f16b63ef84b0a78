package metadata

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// MergedPropertyType selects which view of an entity's properties is merged
type MergedPropertyType string

const (
	MergedPrimary           MergedPropertyType = "PRIMARY"
	MergedAdornedTargetList MergedPropertyType = "ADORNED_TARGET_LIST"
)

// ForeignKey marks a scalar property as pointing at another entity
type ForeignKey struct {
	Property string `json:"property" validate:"required"`
	Entity   string `json:"entity" validate:"required"`
}

// FieldMetadata is one entry of a merged property map
type FieldMetadata struct {
	// Name is the merged key, including any requested prefix.
	Name  string
	Field *Field
	Type  MergedPropertyType
	// Entity is the polymorphic type that contributed the field.
	Entity        string
	InheritedFrom string
	ForeignKey    *ForeignKey
	// Via is set for fields populated from a to-one reference; the value is
	// read from the row Via points at.
	Via *Field
}

// IsID reports whether the entry is the entity's primary key
func (m *FieldMetadata) IsID() bool {
	return m.Via == nil && m.Field.Kind == KindID
}

// MergedPropertiesRequest carries the arguments of a merged properties lookup
type MergedPropertiesRequest struct {
	EntityName          string
	PolymorphicTypes    []string
	ForeignKeys         []ForeignKey
	IncludeFields       []string
	ExcludeFields       []string
	Type                MergedPropertyType
	PopulateToOneFields bool
	ConfigKey           string
	Prefix              string
}

// CacheKey identifies a request for memoization
func (r MergedPropertiesRequest) CacheKey() string {
	fks := make([]string, 0, len(r.ForeignKeys))
	for _, fk := range r.ForeignKeys {
		fks = append(fks, fk.Property+">"+fk.Entity)
	}
	return strings.Join([]string{
		r.EntityName,
		strings.Join(r.PolymorphicTypes, ","),
		strings.Join(fks, ","),
		strings.Join(r.IncludeFields, ","),
		strings.Join(r.ExcludeFields, ","),
		string(r.Type),
		fmt.Sprint(r.PopulateToOneFields),
		r.ConfigKey,
		r.Prefix,
	}, "|")
}

// Provider produces merged property maps for entities
type Provider interface {
	MergedProperties(ctx context.Context, req MergedPropertiesRequest) (map[string]*FieldMetadata, error)
}

// RegistryProvider builds merged properties from the statically registered schema
type RegistryProvider struct {
	registry *Registry
}

// NewRegistryProvider creates a provider over reg
func NewRegistryProvider(reg *Registry) *RegistryProvider {
	return &RegistryProvider{registry: reg}
}

// MergedProperties merges the fields of the entity and its polymorphic
// subtypes. The ceiling type wins on name clashes. Collections are omitted.
func (p *RegistryProvider) MergedProperties(_ context.Context, req MergedPropertiesRequest) (map[string]*FieldMetadata, error) {
	types, err := p.polymorphicTypes(req)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*FieldMetadata)
	add := func(name string, md *FieldMetadata) {
		if !included(name, req.IncludeFields, req.ExcludeFields) {
			return
		}
		key := name
		if req.Prefix != "" {
			key = req.Prefix + "." + name
		}
		if _, exists := merged[key]; exists {
			return
		}
		md.Name = key
		merged[key] = md
	}

	for _, et := range types {
		for _, f := range et.Fields() {
			if f.Kind == KindCollection {
				continue
			}
			md := &FieldMetadata{
				Field:  f,
				Type:   req.Type,
				Entity: et.Name,
			}
			if f.DeclaredBy != et.Name {
				md.InheritedFrom = f.DeclaredBy
			}
			for i := range req.ForeignKeys {
				if req.ForeignKeys[i].Property == f.Name {
					fk := req.ForeignKeys[i]
					md.ForeignKey = &fk
				}
			}
			add(f.Name, md)

			if req.PopulateToOneFields && f.Kind == KindReference {
				if err := p.populateToOne(f, et.Name, req.Type, add); err != nil {
					return nil, err
				}
			}
		}
	}
	return merged, nil
}

func (p *RegistryProvider) polymorphicTypes(req MergedPropertiesRequest) ([]*EntityType, error) {
	if len(req.PolymorphicTypes) == 0 {
		return p.registry.Polymorphic(req.EntityName)
	}
	types := make([]*EntityType, 0, len(req.PolymorphicTypes))
	for _, name := range req.PolymorphicTypes {
		et, err := p.registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		types = append(types, et)
	}
	return types, nil
}

// populateToOne adds the scalar fields of a referenced entity one level deep
func (p *RegistryProvider) populateToOne(ref *Field, owner string, typ MergedPropertyType, add func(string, *FieldMetadata)) error {
	target, err := p.registry.Lookup(ref.Target)
	if err != nil {
		return err
	}
	for _, tf := range target.Fields() {
		if tf.Kind == KindCollection || tf.Kind == KindReference || tf.Kind == KindID {
			continue
		}
		add(ref.Name+"."+tf.Name, &FieldMetadata{
			Field:  tf,
			Type:   typ,
			Entity: owner,
			Via:    ref,
		})
	}
	return nil
}

func included(name string, include, exclude []string) bool {
	if len(include) > 0 && !slices.Contains(include, name) {
		return false
	}
	return !slices.Contains(exclude, name)
}

// WithoutID returns a copy of merged without the primary key entry
func WithoutID(merged map[string]*FieldMetadata) map[string]*FieldMetadata {
	out := make(map[string]*FieldMetadata, len(merged))
	for k, v := range merged {
		if v.IsID() {
			continue
		}
		out[k] = v
	}
	return out
}

// SortedKeys returns the keys of merged in lexical order
func SortedKeys(merged map[string]*FieldMetadata) []string {
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
