package criteria

import (
	"github.com/erp/openadmin/internal/domain/admin"
)

// Query selects rows of Entity matching every mapping, ordered by the sort
// mappings in slice order and then by id.
type Query struct {
	// Entity is the registered type rows are loaded as. Mappings must be
	// resolved against a type sharing its table.
	Entity   string
	Mappings []FilterMapping
	Offset   int
	// Limit of zero means no limit.
	Limit int
	Scope admin.Scope
}

// Unpaged returns a copy without offset and limit
func (q Query) Unpaged() Query {
	q.Offset = 0
	q.Limit = 0
	return q
}
