package store

import "fmt"

type Result struct {
	Records []Record
	Summary Summary
}

// First returns the first record, or false when the result is empty.
func (r *Result) First() (Record, bool) {
	if r == nil || len(r.Records) == 0 {
		return Record{}, false
	}
	return r.Records[0], true
}

type Record struct {
	Keys   []string
	Values []any
}

func (r Record) Get(key string) (any, bool) {
	for i, k := range r.Keys {
		if k == key && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the record as a column to value map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Keys))
	for i, k := range r.Keys {
		if i < len(r.Values) {
			out[k] = r.Values[i]
		}
	}
	return out
}

// Node is a node-shaped value. Props holds driver-neutral values: bool,
// int64, float64, string, time.Time, []any and map[string]any.
type Node struct {
	ID     int64
	Labels []string
	Props  map[string]any
}

// NodeOf reads a Node from column key.
func (r Record) NodeOf(key string) (Node, error) {
	v, ok := r.Get(key)
	if !ok {
		return Node{}, fmt.Errorf("record has no column %q", key)
	}
	switch n := v.(type) {
	case Node:
		return n, nil
	case *Node:
		if n != nil {
			return *n, nil
		}
	}
	return Node{}, fmt.Errorf("column %q is %T, not a node", key, v)
}

// Int64Of reads an integer column.
func (r Record) Int64Of(key string) (int64, error) {
	v, ok := r.Get(key)
	if !ok {
		return 0, fmt.Errorf("record has no column %q", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("column %q is %T, not an integer", key, v)
}

type Summary struct {
	NodesCreated         int64
	NodesDeleted         int64
	PropertiesSet        int64
	RelationshipsCreated int64
}
