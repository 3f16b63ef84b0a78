package metadata

import (
	"fmt"
)

// EntityType is the registered schema of one admin-managed entity
type EntityType struct {
	Name  string
	Table string
	// Sandboxed types carry sandbox columns and are scoped per edit context.
	Sandboxed bool

	parent   *EntityType
	declared []*Field
	fields   []*Field
	byName   map[string]*Field

	newRow  func() any
	newRows func() any
	rowsOf  func(rows any) []any
}

// NewEntityType registers the Go struct T as the row type of an entity
func NewEntityType[T any](name, table string, fields ...*Field) *EntityType {
	et := &EntityType{
		Name:   name,
		Table:  table,
		byName: make(map[string]*Field),
		newRow: func() any { return new(T) },
		newRows: func() any {
			rows := make([]T, 0)
			return &rows
		},
		rowsOf: func(rows any) []any {
			typed, ok := rows.(*[]T)
			if !ok || typed == nil {
				return nil
			}
			out := make([]any, len(*typed))
			for i := range *typed {
				out[i] = &(*typed)[i]
			}
			return out
		},
	}
	et.declare(fields)
	return et
}

// Extend registers C as a subtype of parent. up returns the embedded parent
// row of a C row; every parent field is rebound through it. An empty table
// keeps the parent's table (single table inheritance).
func Extend[P, C any](parent *EntityType, name, table string, up func(*C) *P, fields ...*Field) *EntityType {
	if table == "" {
		table = parent.Table
	}
	et := NewEntityType[C](name, table, fields...)
	et.parent = parent
	et.Sandboxed = parent.Sandboxed

	upcast := func(row any) (any, bool) {
		c, ok := row.(*C)
		if !ok || c == nil {
			return nil, false
		}
		return up(c), true
	}
	for _, f := range parent.fields {
		if _, shadowed := et.byName[f.Name]; shadowed {
			continue
		}
		lifted := f.lift(upcast)
		et.fields = append(et.fields, lifted)
		et.byName[f.Name] = lifted
	}
	return et
}

func (e *EntityType) declare(fields []*Field) {
	for _, f := range fields {
		f.DeclaredBy = e.Name
		e.declared = append(e.declared, f)
		e.fields = append(e.fields, f)
		e.byName[f.Name] = f
	}
}

// Parent returns the supertype, or nil for a root type
func (e *EntityType) Parent() *EntityType {
	return e.parent
}

// Field looks a field up by name, declared fields first, then inherited ones
func (e *EntityType) Field(name string) (*Field, bool) {
	f, ok := e.byName[name]
	return f, ok
}

// MustField is Field for names known at registration time
func (e *EntityType) MustField(name string) *Field {
	f, ok := e.byName[name]
	if !ok {
		panic(fmt.Sprintf("entity %s has no field %s", e.Name, name))
	}
	return f
}

// Fields returns declared fields followed by inherited ones
func (e *EntityType) Fields() []*Field {
	return e.fields
}

// DeclaredFields returns only the fields this type declares itself
func (e *EntityType) DeclaredFields() []*Field {
	return e.declared
}

// IDField returns the primary key field
func (e *EntityType) IDField() *Field {
	for _, f := range e.fields {
		if f.Kind == KindID {
			return f
		}
	}
	return nil
}

// IsA reports whether the type is name or inherits from it
func (e *EntityType) IsA(name string) bool {
	for t := e; t != nil; t = t.parent {
		if t.Name == name {
			return true
		}
	}
	return false
}

// New allocates an empty row
func (e *EntityType) New() any {
	return e.newRow()
}

// NewSlice allocates a pointer to an empty slice of rows, suitable as a
// query destination.
func (e *EntityType) NewSlice() any {
	return e.newRows()
}

// Rows returns pointers to each row held by a slice from NewSlice
func (e *EntityType) Rows(slice any) []any {
	return e.rowsOf(slice)
}

// Owns reports whether row is an instance of this type
func (e *EntityType) Owns(row any) bool {
	id := e.IDField()
	if id == nil {
		return false
	}
	_, ok := id.Get(row)
	return ok
}
