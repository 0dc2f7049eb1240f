package query

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// DefaultOrder keeps pagination offsets stable when a filter sets no order.
const DefaultOrder = "start_ts DESC, id DESC"

type clause struct {
	key      string
	fragment string
}

// Filter is an ordered set of named predicate fragments plus an optional order.
// The zero value matches every row. Filters are values: every method returns a copy.
type Filter struct {
	where []clause
	order string
}

// NewFilter creates an empty filter.
func NewFilter() Filter {
	return Filter{}
}

// With returns a copy of f with key set to fragment. An existing key keeps its position.
func (f Filter) With(key, fragment string) Filter {
	where := make([]clause, 0, len(f.where)+1)
	replaced := false
	for _, c := range f.where {
		if c.key == key {
			c.fragment = fragment
			replaced = true
		}
		where = append(where, c)
	}
	if !replaced {
		where = append(where, clause{key: key, fragment: fragment})
	}
	f.where = where
	return f
}

// Without returns a copy of f with key removed.
func (f Filter) Without(key string) Filter {
	var where []clause
	for _, c := range f.where {
		if c.key != key {
			where = append(where, c)
		}
	}
	f.where = where
	return f
}

// OrderBy returns a copy of f with its order fragment replaced. Empty restores the default.
func (f Filter) OrderBy(order string) Filter {
	f.order = strings.TrimSpace(order)
	return f
}

// Keys lists the predicate keys in insertion order.
func (f Filter) Keys() []string {
	keys := make([]string, len(f.where))
	for i, c := range f.where {
		keys[i] = c.key
	}
	return keys
}

// Fragment returns the predicate stored under key.
func (f Filter) Fragment(key string) (string, bool) {
	for _, c := range f.where {
		if c.key == key {
			return c.fragment, true
		}
	}
	return "", false
}

// Len is the number of predicates.
func (f Filter) Len() int {
	return len(f.where)
}

// Order is the effective order clause.
func (f Filter) Order() string {
	if f.order == "" {
		return DefaultOrder
	}
	return f.order
}

// HasOrder reports whether an explicit order was set.
func (f Filter) HasOrder() bool {
	return f.order != ""
}

// WhereSQL conjoins the predicates, each parenthesised. Empty when there are none.
func (f Filter) WhereSQL() string {
	parts := make([]string, 0, len(f.where))
	for _, c := range f.where {
		parts = append(parts, "("+c.fragment+")")
	}
	return strings.Join(parts, " AND ")
}

type filterJSON struct {
	Where [][2]string `json:"where"`
	Order string      `json:"order,omitempty"`
}

// MarshalJSON encodes the filter as {"where":[[key,fragment],...],"order":"..."}.
func (f Filter) MarshalJSON() ([]byte, error) {
	out := filterJSON{Where: make([][2]string, 0, len(f.where)), Order: f.order}
	for _, c := range f.where {
		out.Where = append(out.Where, [2]string{c.key, c.fragment})
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var in filterJSON
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Filter{order: strings.TrimSpace(in.Order)}
	for _, w := range in.Where {
		out = out.With(w[0], w[1])
	}
	*f = out
	return nil
}
