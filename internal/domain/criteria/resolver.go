// Package criteria resolves dotted property paths against the entity schema
// and turns declarative filter and sort criteria into ordered filter mappings.
package criteria

import (
	"strings"

	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/domain/shared"
)

// RootAlias is the table alias of the queried entity
const RootAlias = "root"

// Join is a to-one hop from one table alias to the referenced entity's table
type Join struct {
	Alias       string
	Table       string
	ParentAlias string
	// ForeignKey is the referencing column on ParentAlias.
	ForeignKey string
	// TargetKey is the primary key column of Table.
	TargetKey string
}

// FieldPath is a property path resolved against a root entity
type FieldPath struct {
	Root  string
	Path  string
	Joins []Join
	// Alias is the table alias holding the terminal column.
	Alias string
	Field *metadata.Field
	// Owner is the entity type the terminal field was found on.
	Owner *metadata.EntityType
}

// Column returns the terminal column name
func (p *FieldPath) Column() string {
	return p.Field.Column
}

// Resolve walks path segment by segment from root. Dotted field names such as
// embedded columns are matched longest first. A reference followed by the
// referenced entity's id resolves to the foreign key column itself.
func Resolve(reg *metadata.Registry, root, path string) (*FieldPath, error) {
	current, err := reg.Lookup(root)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, shared.Wrapf(shared.ErrFieldNotAvailable, "empty property path on %s", root)
	}

	segments := strings.Split(path, ".")
	fp := &FieldPath{Root: root, Path: path, Alias: RootAlias}

	for i := 0; i < len(segments); {
		field, owner, n := match(reg, current, segments[i:])
		if field == nil {
			return nil, shared.Wrapf(shared.ErrFieldNotAvailable, "%s has no property %s (path %s)", current.Name, segments[i], path)
		}
		i += n
		last := i == len(segments)

		switch field.Kind {
		case metadata.KindCollection:
			return nil, shared.Wrapf(shared.ErrFieldNotAvailable, "%s.%s is a collection and cannot end or traverse path %s", owner.Name, field.Name, path)

		case metadata.KindReference:
			if last {
				fp.Field, fp.Owner = field, owner
				return fp, nil
			}
			target, err := reg.Lookup(field.Target)
			if err != nil {
				return nil, err
			}
			targetID := target.IDField()
			if i == len(segments)-1 && segments[i] == targetID.Name {
				fp.Field, fp.Owner = field, owner
				return fp, nil
			}
			alias := fp.Alias + "__" + strings.ReplaceAll(field.Name, ".", "_")
			fp.Joins = append(fp.Joins, Join{
				Alias:       alias,
				Table:       target.Table,
				ParentAlias: fp.Alias,
				ForeignKey:  field.Column,
				TargetKey:   targetID.Column,
			})
			fp.Alias = alias
			current = target

		default:
			if !last {
				return nil, shared.Wrapf(shared.ErrFieldNotAvailable, "%s.%s is not a reference (path %s)", owner.Name, field.Name, path)
			}
			fp.Field, fp.Owner = field, owner
			return fp, nil
		}
	}
	return nil, shared.Wrapf(shared.ErrFieldNotAvailable, "cannot resolve %s on %s", path, root)
}

// match finds the longest dotted field name at the head of segments on et.
// Subtypes sharing et's table are searched when et itself lacks the field.
func match(reg *metadata.Registry, et *metadata.EntityType, segments []string) (*metadata.Field, *metadata.EntityType, int) {
	for n := len(segments); n >= 1; n-- {
		name := strings.Join(segments[:n], ".")
		if f, ok := et.Field(name); ok {
			return f, et, n
		}
	}

	subtypes, err := reg.Polymorphic(et.Name)
	if err != nil {
		return nil, nil, 0
	}
	for _, sub := range subtypes[1:] {
		if sub.Table != et.Table {
			continue
		}
		for n := len(segments); n >= 1; n-- {
			if f, ok := sub.Field(strings.Join(segments[:n], ".")); ok {
				return f, sub, n
			}
		}
	}
	return nil, nil, 0
}
