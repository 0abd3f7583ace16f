// Package query renders the statements issued by the mapper. Each dialect
// turns a label and flat equality filters into statement text with named
// parameters.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Column names every dialect uses in its result rows.
const (
	NodeColumn  = "n"
	CountColumn = "count"
)

type Query struct {
	Text   string
	Params map[string]any
}

type Order struct {
	Field string
	Desc  bool
}

// Match is the filter and paging part of a find. Skip and Limit are omitted
// when zero.
type Match struct {
	Where   map[string]any
	OrderBy []Order
	Skip    int
	Limit   int
}

// Dialect renders the fixed set of statements the mapper needs.
type Dialect interface {
	Name() string
	Create(label string, props map[string]any) (Query, error)
	Update(label string, id int64, props map[string]any) (Query, error)
	Delete(label string, id int64) (Query, error)
	Get(label string, id int64) (Query, error)
	Find(label string, m Match) (Query, error)
	Count(label string, where map[string]any) (Query, error)
	Relate(relType, fromLabel string, fromID int64, toLabel string, toID int64) (Query, error)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be inlined as a label, relationship
// type or property name.
func ValidIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

func checkIdent(what, s string) error {
	if !identPattern.MatchString(s) {
		return fmt.Errorf("invalid %s: %q", what, s)
	}
	return nil
}

func checkKeys[V any](what string, m map[string]V) error {
	for k := range m {
		if err := checkIdent(what, k); err != nil {
			return err
		}
	}
	return nil
}

func checkMatch(label string, m Match) error {
	if err := checkIdent("label", label); err != nil {
		return err
	}
	if err := checkKeys("filter key", m.Where); err != nil {
		return err
	}
	for _, o := range m.OrderBy {
		if err := checkIdent("order field", o.Field); err != nil {
			return err
		}
	}
	if m.Skip < 0 {
		return fmt.Errorf("invalid skip: %d", m.Skip)
	}
	if m.Limit < 0 {
		return fmt.Errorf("invalid limit: %d", m.Limit)
	}
	return nil
}

func checkRelate(relType, fromLabel, toLabel string) error {
	if err := checkIdent("relationship type", relType); err != nil {
		return err
	}
	if err := checkIdent("label", fromLabel); err != nil {
		return err
	}
	return checkIdent("label", toLabel)
}

// SortedKeys returns the keys of m in lexicographic order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WhereParam is the parameter name bound to the filter on key.
func WhereParam(key string) string {
	return "w_" + key
}

// predicates renders one clause per filter key in sorted order. A nil value
// renders through isNull and binds nothing.
func predicates(where map[string]any, eq func(key, param string, value any) string, isNull func(key string) string) []string {
	out := make([]string, 0, len(where))
	for _, key := range SortedKeys(where) {
		v := where[key]
		if v == nil {
			out = append(out, isNull(key))
			continue
		}
		out = append(out, eq(key, WhereParam(key), v))
	}
	return out
}

func orderClause(orders []Order, expr func(field string) string) string {
	if len(orders) == 0 {
		return ""
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = expr(o.Field)
		if o.Desc {
			parts[i] += " DESC"
		}
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
