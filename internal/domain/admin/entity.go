// Package admin holds the request and DTO types exchanged with the admin
// layer: persistence packages, perspectives, adorned target list
// configurations, criteria transfer objects and entity DTOs.
package admin

// Property is one flattened value of an entity DTO
type Property struct {
	Name         string `json:"name"`
	Value        string `json:"value"`
	DisplayValue string `json:"display_value,omitempty"`
	IsDirty      bool   `json:"is_dirty,omitempty"`
}

// Entity is the wire representation of a persisted row and its to-one
// related rows, keyed by dotted property name.
type Entity struct {
	Type              []string            `json:"type,omitempty"`
	Properties        []Property          `json:"properties"`
	Dirty             bool                `json:"dirty,omitempty"`
	ValidationFailure bool                `json:"validation_failure,omitempty"`
	Errors            map[string][]string `json:"errors,omitempty"`
}

// NewEntity creates an entity DTO from properties
func NewEntity(props ...Property) *Entity {
	return &Entity{Properties: props}
}

// NewEntityFromMap creates an entity DTO whose properties are all dirty
func NewEntityFromMap(values map[string]string) *Entity {
	e := &Entity{}
	for name, value := range values {
		e.AddProperty(Property{Name: name, Value: value, IsDirty: true})
	}
	return e
}

// FindProperty returns the property with name, or nil
func (e *Entity) FindProperty(name string) *Property {
	if e == nil {
		return nil
	}
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i]
		}
	}
	return nil
}

// Value returns the value of a property and whether it is present
func (e *Entity) Value(name string) (string, bool) {
	p := e.FindProperty(name)
	if p == nil {
		return "", false
	}
	return p.Value, true
}

// AddProperty appends p, replacing a property of the same name
func (e *Entity) AddProperty(p Property) {
	if existing := e.FindProperty(p.Name); existing != nil {
		*existing = p
		return
	}
	e.Properties = append(e.Properties, p)
}

// Values flattens the properties into a map
func (e *Entity) Values() map[string]string {
	out := make(map[string]string, len(e.Properties))
	for _, p := range e.Properties {
		out[p.Name] = p.Value
	}
	return out
}

// Clone returns a deep copy
func (e *Entity) Clone() *Entity {
	if e == nil {
		return &Entity{}
	}
	c := &Entity{
		Type:              append([]string(nil), e.Type...),
		Properties:        append([]Property(nil), e.Properties...),
		Dirty:             e.Dirty,
		ValidationFailure: e.ValidationFailure,
	}
	if e.Errors != nil {
		c.Errors = make(map[string][]string, len(e.Errors))
		for k, v := range e.Errors {
			c.Errors[k] = append([]string(nil), v...)
		}
	}
	return c
}

// DynamicResultSet is a page of entity DTOs plus the unpaged total
type DynamicResultSet struct {
	Records      []*Entity `json:"records"`
	TotalRecords int64     `json:"total_records"`
}
