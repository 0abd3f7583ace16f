package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"graphorm/internal/metadata"
	"graphorm/internal/query"
)

// DecodeProperties parses a JSON properties document read from a SQL store.
// Integral numbers decode to int64, all other numbers to float64.
func DecodeProperties(raw any) (map[string]any, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case map[string]any:
		return normalizeJSON(v).(map[string]any), nil
	default:
		return nil, fmt.Errorf("unexpected properties column type %T", raw)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var props map[string]any
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("decoding properties: %w", err)
	}
	if props == nil {
		return map[string]any{}, nil
	}
	return normalizeJSON(props).(map[string]any), nil
}

func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeJSON(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeJSON(e)
		}
		return x
	default:
		return v
	}
}

// SQLRecord builds a Record from a SQL row. Rows carrying the node columns
// id, label and properties are folded into a single Node under
// query.NodeColumn.
func SQLRecord(columns []string, values []any) (Record, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	iID, okID := idx["id"]
	iLabel, okLabel := idx["label"]
	iProps, okProps := idx["properties"]
	if !okID || !okLabel || !okProps {
		return Record{Keys: columns, Values: values}, nil
	}

	id, err := Record{Keys: []string{"id"}, Values: []any{values[iID]}}.Int64Of("id")
	if err != nil {
		return Record{}, err
	}
	props, err := DecodeProperties(values[iProps])
	if err != nil {
		return Record{}, err
	}
	label := fmt.Sprint(values[iLabel])
	if b, ok := values[iLabel].([]byte); ok {
		label = string(b)
	}

	rec := Record{
		Keys:   []string{query.NodeColumn},
		Values: []any{Node{ID: id, Labels: []string{label}, Props: props}},
	}
	for i, c := range columns {
		if i == iID || i == iLabel || i == iProps {
			continue
		}
		rec.Keys = append(rec.Keys, c)
		rec.Values = append(rec.Values, values[i])
	}
	return rec, nil
}

// ReturnsRows reports whether a SQL statement produces a result set.
func ReturnsRows(text string) bool {
	fields := strings.Fields(strings.ToUpper(text))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "SELECT", "WITH", "VALUES", "PRAGMA", "EXPLAIN", "SHOW":
		return true
	}
	for _, f := range fields {
		if f == "RETURNING" {
			return true
		}
	}
	return false
}

// SQLSummary maps the affected row count of a statement to the graph
// counters it corresponds to.
func SQLSummary(text string, affected int64) Summary {
	fields := strings.Fields(strings.ToUpper(text))
	if len(fields) < 3 {
		return Summary{}
	}
	onEdges := false
	for _, f := range fields {
		if strings.EqualFold(f, query.EdgesTable) {
			onEdges = true
			break
		}
	}
	switch fields[0] {
	case "INSERT":
		if onEdges {
			return Summary{RelationshipsCreated: affected}
		}
		return Summary{NodesCreated: affected}
	case "DELETE":
		if onEdges {
			return Summary{}
		}
		return Summary{NodesDeleted: affected}
	case "UPDATE":
		return Summary{PropertiesSet: affected}
	}
	return Summary{}
}

// IndexSpec is one index or unique constraint derived from the declared
// Indexed and Unique flags.
type IndexSpec struct {
	Label  string
	Key    string
	Unique bool
}

// Name is a stable identifier usable as an index name.
func (s IndexSpec) Name() string {
	prefix := "idx"
	if s.Unique {
		prefix = "uq"
	}
	return strings.ToLower(fmt.Sprintf("%s_%s_%s", prefix, s.Label, s.Key))
}

// IndexSpecs lists the indexes every backend should create for reg, in
// declaration order. A unique property needs no separate index.
func IndexSpecs(reg *metadata.Registry) []IndexSpec {
	var specs []IndexSpec
	for _, d := range reg.Entities() {
		if !query.ValidIdentifier(d.Label) {
			continue
		}
		for _, p := range d.Properties() {
			if !query.ValidIdentifier(p.Key) {
				continue
			}
			switch {
			case p.Unique:
				specs = append(specs, IndexSpec{Label: d.Label, Key: p.Key, Unique: true})
			case p.Indexed:
				specs = append(specs, IndexSpec{Label: d.Label, Key: p.Key})
			}
		}
	}
	return specs
}
