// Package metadata describes the admin-managed entity schema: entity types,
// their typed field accessors, inheritance between types and the merged
// property views handed to the criteria builder and DTO conversion.
package metadata

import (
	"fmt"
	"strconv"

	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Kind tags the shape of a field
type Kind int

const (
	KindID Kind = iota + 1
	KindInteger
	KindDecimal
	KindString
	KindBoolean
	KindReference
	KindCollection
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindReference:
		return "reference"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Field is a typed accessor for one property of an entity row. Rows are
// pointers to the registered Go struct; accessors are bound at registration.
type Field struct {
	Name   string
	Column string
	Kind   Kind
	// ValueKind is the scalar kind stored in the column. For ids and
	// references it is KindInteger or KindString.
	ValueKind Kind
	// Target is the referenced entity name for references and collections.
	Target string
	// DeclaredBy is the entity type that declared the field.
	DeclaredBy string

	get func(row any) (any, bool)
	set func(row any, v any) error
}

// Get reads the field from row. ok is false when row is not of the type the
// field was registered for.
func (f *Field) Get(row any) (any, bool) {
	if f.get == nil {
		return nil, false
	}
	return f.get(row)
}

// Set writes v into row. v must already be of the field's Go type; use Parse
// to convert wire values.
func (f *Field) Set(row any, v any) error {
	if f.set == nil {
		return fmt.Errorf("field %s is not writable", f.Name)
	}
	return f.set(row, v)
}

// IsString reports whether values of the field are strings
func (f *Field) IsString() bool {
	return f.ValueKind == KindString
}

// IsScalar reports whether the field maps to a single column value
func (f *Field) IsScalar() bool {
	return f.Kind != KindCollection
}

// Parse converts a wire value into the field's Go type
func (f *Field) Parse(s string) (any, error) {
	switch f.ValueKind {
	case KindInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, shared.Wrapf(shared.ErrFormat, "invalid integer %q for %s", s, f.Name)
		}
		return n, nil
	case KindDecimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, shared.Wrapf(shared.ErrFormat, "invalid decimal %q for %s", s, f.Name)
		}
		return d, nil
	case KindBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, shared.Wrapf(shared.ErrFormat, "invalid boolean %q for %s", s, f.Name)
		}
		return b, nil
	case KindString:
		return s, nil
	default:
		return nil, fmt.Errorf("field %s of kind %s has no scalar value", f.Name, f.Kind)
	}
}

// Format renders a value read from the field as a wire string
func (f *Field) Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case decimal.Decimal:
		return val.String()
	case *int64:
		if val == nil {
			return ""
		}
		return strconv.FormatInt(*val, 10)
	case *string:
		if val == nil {
			return ""
		}
		return *val
	default:
		return fmt.Sprint(val)
	}
}

// lift rebinds the accessors of a parent field onto a subtype row
func (f *Field) lift(up func(row any) (any, bool)) *Field {
	lifted := *f
	lifted.get = func(row any) (any, bool) {
		parent, ok := up(row)
		if !ok {
			return nil, false
		}
		return f.Get(parent)
	}
	lifted.set = func(row any, v any) error {
		parent, ok := up(row)
		if !ok {
			return fmt.Errorf("field %s: unexpected row type %T", f.Name, row)
		}
		return f.Set(parent, v)
	}
	return &lifted
}

func bind[T, V any](name, column string, kind, valueKind Kind, ptr func(*T) *V) *Field {
	return &Field{
		Name:      name,
		Column:    column,
		Kind:      kind,
		ValueKind: valueKind,
		get: func(row any) (any, bool) {
			r, ok := row.(*T)
			if !ok || r == nil {
				return nil, false
			}
			return *ptr(r), true
		},
		set: func(row any, v any) error {
			r, ok := row.(*T)
			if !ok || r == nil {
				return fmt.Errorf("field %s: unexpected row type %T", name, row)
			}
			val, ok := v.(V)
			if !ok {
				return fmt.Errorf("field %s: cannot assign %T", name, v)
			}
			*ptr(r) = val
			return nil
		},
	}
}

// ID declares an int64 primary key
func ID[T any](name, column string, ptr func(*T) *int64) *Field {
	return bind(name, column, KindID, KindInteger, ptr)
}

// StringID declares a string primary key
func StringID[T any](name, column string, ptr func(*T) *string) *Field {
	return bind(name, column, KindID, KindString, ptr)
}

// Int declares an int64 column
func Int[T any](name, column string, ptr func(*T) *int64) *Field {
	return bind(name, column, KindInteger, KindInteger, ptr)
}

// Decimal declares a decimal column
func Decimal[T any](name, column string, ptr func(*T) *decimal.Decimal) *Field {
	return bind(name, column, KindDecimal, KindDecimal, ptr)
}

// String declares a string column
func String[T any](name, column string, ptr func(*T) *string) *Field {
	return bind(name, column, KindString, KindString, ptr)
}

// Bool declares a boolean column
func Bool[T any](name, column string, ptr func(*T) *bool) *Field {
	return bind(name, column, KindBoolean, KindBoolean, ptr)
}

// Ref declares a to-one reference stored as an int64 foreign key
func Ref[T any](name, column, target string, ptr func(*T) *int64) *Field {
	f := bind(name, column, KindReference, KindInteger, ptr)
	f.Target = target
	return f
}

// StringRef declares a to-one reference stored as a string foreign key
func StringRef[T any](name, column, target string, ptr func(*T) *string) *Field {
	f := bind(name, column, KindReference, KindString, ptr)
	f.Target = target
	return f
}

// Collection declares a to-many relationship. It has no column and cannot be
// read or written through the field.
func Collection(name, target string) *Field {
	return &Field{
		Name:   name,
		Kind:   KindCollection,
		Target: target,
	}
}
