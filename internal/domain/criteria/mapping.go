package criteria

import (
	"strconv"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/shared"
)

// Operator is the comparison a Predicate applies to its column
type Operator int

const (
	OpEqual Operator = iota + 1
	OpIn
	OpIsNull
)

// Predicate is a storage independent condition on the column of a FieldPath
type Predicate struct {
	Operator Operator
	Values   []any
}

// PredicateProvider builds the predicate for a mapping from its raw filter
// values
type PredicateProvider func(path *FieldPath, values []string) (Predicate, error)

// Restriction holds the predicate construction strategy of a mapping
type Restriction struct {
	PredicateProvider PredicateProvider
}

// FilterMapping pairs a resolved path with filter values, a restriction and
// an optional sort direction. Mappings are ANDed; sorts apply in order.
type FilterMapping struct {
	FieldPath        *FieldPath
	FullPropertyName string
	FilterValues     []string
	Restriction      *Restriction
	SortDirection    *admin.SortDirection
	InheritedFrom    string
}

// HasPredicate reports whether the mapping contributes a condition
func (m *FilterMapping) HasPredicate() bool {
	return m.Restriction != nil && m.Restriction.PredicateProvider != nil && len(m.FilterValues) > 0
}

// Predicate evaluates the mapping's restriction
func (m *FilterMapping) Predicate() (Predicate, error) {
	return m.Restriction.PredicateProvider(m.FieldPath, m.FilterValues)
}

// DefaultRestriction converts each value to the field's declared type and
// compares with equality, or IN for several values.
func DefaultRestriction() *Restriction {
	return &Restriction{PredicateProvider: typedEquality}
}

func typedEquality(path *FieldPath, values []string) (Predicate, error) {
	converted := make([]any, 0, len(values))
	for _, v := range values {
		parsed, err := path.Field.Parse(v)
		if err != nil {
			return Predicate{}, err
		}
		converted = append(converted, parsed)
	}
	if len(converted) == 1 {
		return Predicate{Operator: OpEqual, Values: converted}, nil
	}
	return Predicate{Operator: OpIn, Values: converted}, nil
}

// IdentityRestriction matches join-row identity columns: string columns by
// string IN, everything else by int64 IN.
func IdentityRestriction() *Restriction {
	return &Restriction{PredicateProvider: identityIn}
}

func identityIn(path *FieldPath, values []string) (Predicate, error) {
	converted := make([]any, 0, len(values))
	if path.Field.IsString() {
		for _, v := range values {
			converted = append(converted, v)
		}
		return Predicate{Operator: OpIn, Values: converted}, nil
	}
	for _, v := range values {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Predicate{}, shared.Wrapf(shared.ErrFormat, "invalid id %q for %s", v, path.Path)
		}
		converted = append(converted, n)
	}
	return Predicate{Operator: OpIn, Values: converted}, nil
}
