package admin

// SortDirection orders a criteria entry
type SortDirection string

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

// DirectionOf maps an ascending flag onto a SortDirection
func DirectionOf(ascending bool) SortDirection {
	if ascending {
		return SortAscending
	}
	return SortDescending
}

// FilterAndSortCriteria is the filter values and sort order requested for one
// property
type FilterAndSortCriteria struct {
	PropertyID    string         `json:"property_id"`
	FilterValues  []string       `json:"filter_values,omitempty"`
	SortDirection *SortDirection `json:"sort_direction,omitempty"`
}

// SetFilterValue replaces the filter values with v
func (c *FilterAndSortCriteria) SetFilterValue(v string) {
	c.FilterValues = []string{v}
}

// SetFilterValues replaces the filter values
func (c *FilterAndSortCriteria) SetFilterValues(values ...string) {
	c.FilterValues = append([]string(nil), values...)
}

// SetSortAscending sets the sort direction
func (c *FilterAndSortCriteria) SetSortAscending(ascending bool) {
	d := DirectionOf(ascending)
	c.SortDirection = &d
}

// HasFilter reports whether any filter value is set
func (c *FilterAndSortCriteria) HasFilter() bool {
	return len(c.FilterValues) > 0
}

// CriteriaTransferObject carries the criteria of a fetch keyed by property
// name, in insertion order, plus the requested page window.
type CriteriaTransferObject struct {
	FirstResult int
	// MaxResults of zero means no limit.
	MaxResults int

	criteria map[string]*FilterAndSortCriteria
	keys     []string
}

// NewCriteriaTransferObject creates an empty criteria object
func NewCriteriaTransferObject() *CriteriaTransferObject {
	return &CriteriaTransferObject{criteria: make(map[string]*FilterAndSortCriteria)}
}

// Get returns the criteria for key, creating it when absent
func (c *CriteriaTransferObject) Get(key string) *FilterAndSortCriteria {
	if c.criteria == nil {
		c.criteria = make(map[string]*FilterAndSortCriteria)
	}
	if fc, ok := c.criteria[key]; ok {
		return fc
	}
	fc := &FilterAndSortCriteria{PropertyID: key}
	c.criteria[key] = fc
	c.keys = append(c.keys, key)
	return fc
}

// Lookup returns the criteria for key without creating it
func (c *CriteriaTransferObject) Lookup(key string) (*FilterAndSortCriteria, bool) {
	if c == nil {
		return nil, false
	}
	fc, ok := c.criteria[key]
	return fc, ok
}

// Values returns the filter values for key
func (c *CriteriaTransferObject) Values(key string) []string {
	if c == nil {
		return nil
	}
	if fc, ok := c.criteria[key]; ok {
		return fc.FilterValues
	}
	return nil
}

// Keys returns the criteria keys in insertion order
func (c *CriteriaTransferObject) Keys() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// Clone returns a deep copy
func (c *CriteriaTransferObject) Clone() *CriteriaTransferObject {
	out := NewCriteriaTransferObject()
	if c == nil {
		return out
	}
	out.FirstResult = c.FirstResult
	out.MaxResults = c.MaxResults
	for _, k := range c.keys {
		src := c.criteria[k]
		dst := out.Get(k)
		dst.FilterValues = append([]string(nil), src.FilterValues...)
		if src.SortDirection != nil {
			d := *src.SortDirection
			dst.SortDirection = &d
		}
	}
	return out
}

// Prefixed returns a copy with every key re-keyed as prefix.key, except the
// keys keep reports true for.
func (c *CriteriaTransferObject) Prefixed(prefix string, keep func(key string) bool) *CriteriaTransferObject {
	src := c.Clone()
	out := NewCriteriaTransferObject()
	out.FirstResult = src.FirstResult
	out.MaxResults = src.MaxResults
	for _, k := range src.keys {
		newKey := prefix + "." + k
		if keep != nil && keep(k) {
			newKey = k
		}
		fc := src.criteria[k]
		fc.PropertyID = newKey
		if _, exists := out.criteria[newKey]; !exists {
			out.keys = append(out.keys, newKey)
		}
		out.criteria[newKey] = fc
	}
	return out
}
