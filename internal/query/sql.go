package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// SQL stores keep every node in one table with its properties as a JSON
// document, and every relationship in an edges table.
const (
	NodesTable = "nodes"
	EdgesTable = "edges"

	nodeColumns = "id, label, properties"
)

type sqlite struct{}

// SQLite renders statements for the embedded store. Parameters use the
// :name form.
func SQLite() Dialect { return sqlite{} }

func (sqlite) Name() string { return "sqlite" }

func (sqlite) Create(label string, props map[string]any) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	if err := checkKeys("property key", props); err != nil {
		return Query{}, err
	}
	doc, err := json.Marshal(nonNil(props))
	if err != nil {
		return Query{}, fmt.Errorf("encoding properties: %w", err)
	}
	return Query{
		Text:   "INSERT INTO nodes (label, properties) VALUES (:label, json(:props)) RETURNING " + nodeColumns,
		Params: map[string]any{"label": label, "props": string(doc)},
	}, nil
}

func (sqlite) Update(label string, id int64, props map[string]any) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	if err := checkKeys("property key", props); err != nil {
		return Query{}, err
	}
	params := map[string]any{"id": id, "label": label}
	set := "properties"
	if len(props) > 0 {
		paths := make([]string, 0, len(props))
		for _, key := range SortedKeys(props) {
			doc, err := json.Marshal(props[key])
			if err != nil {
				return Query{}, fmt.Errorf("encoding property %s: %w", key, err)
			}
			param := "u_" + key
			params[param] = string(doc)
			paths = append(paths, fmt.Sprintf("'$.%s', json(:%s)", key, param))
		}
		set = "json_set(properties, " + strings.Join(paths, ", ") + ")"
	}
	return Query{
		Text:   "UPDATE nodes SET properties = " + set + " WHERE id = :id AND label = :label RETURNING " + nodeColumns,
		Params: params,
	}, nil
}

func (sqlite) Delete(label string, id int64) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   "DELETE FROM nodes WHERE id = :id AND label = :label",
		Params: map[string]any{"id": id, "label": label},
	}, nil
}

func (sqlite) Get(label string, id int64) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   "SELECT " + nodeColumns + " FROM nodes WHERE id = :id AND label = :label",
		Params: map[string]any{"id": id, "label": label},
	}, nil
}

func (d sqlite) Find(label string, m Match) (Query, error) {
	if err := checkMatch(label, m); err != nil {
		return Query{}, err
	}
	params := map[string]any{"label": label}
	var b strings.Builder
	b.WriteString("SELECT " + nodeColumns + " FROM nodes")
	b.WriteString(d.where(m.Where, params))
	b.WriteString(orderClause(m.OrderBy, jsonExtract))
	switch {
	case m.Limit > 0:
		b.WriteString(" LIMIT :limit")
		params["limit"] = int64(m.Limit)
	case m.Skip > 0:
		b.WriteString(" LIMIT -1")
	}
	if m.Skip > 0 {
		b.WriteString(" OFFSET :skip")
		params["skip"] = int64(m.Skip)
	}
	return Query{Text: b.String(), Params: params}, nil
}

func (d sqlite) Count(label string, where map[string]any) (Query, error) {
	if err := checkMatch(label, Match{Where: where}); err != nil {
		return Query{}, err
	}
	params := map[string]any{"label": label}
	text := "SELECT count(*) AS " + CountColumn + " FROM nodes" + d.where(where, params)
	return Query{Text: text, Params: params}, nil
}

func (sqlite) Relate(relType, fromLabel string, fromID int64, toLabel string, toID int64) (Query, error) {
	if err := checkRelate(relType, fromLabel, toLabel); err != nil {
		return Query{}, err
	}
	return Query{
		Text: `INSERT OR IGNORE INTO edges (src_id, dst_id, rel_type)
SELECT a.id, b.id, :rel_type FROM nodes a, nodes b
WHERE a.id = :from_id AND a.label = :from_label AND b.id = :to_id AND b.label = :to_label`,
		Params: relateParams(relType, fromLabel, fromID, toLabel, toID),
	}, nil
}

func (sqlite) where(where map[string]any, params map[string]any) string {
	preds := predicates(where,
		func(key, param string, v any) string {
			bound, composite := sqliteValue(v)
			params[param] = bound
			if composite {
				return fmt.Sprintf("%s = json(:%s)", jsonExtract(key), param)
			}
			return fmt.Sprintf("%s = :%s", jsonExtract(key), param)
		},
		func(key string) string { return jsonExtract(key) + " IS NULL" },
	)
	return " WHERE " + strings.Join(append([]string{"label = :label"}, preds...), " AND ")
}

func jsonExtract(key string) string {
	return fmt.Sprintf("json_extract(properties, '$.%s')", key)
}

// sqliteValue converts a filter value to what json_extract yields for the
// stored JSON: booleans become 0/1, times their JSON text, and composite
// values minified JSON.
func sqliteValue(v any) (any, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1), false
		}
		return int64(0), false
	case time.Time:
		return x.Format(time.RFC3339Nano), false
	case string, []byte:
		return x, false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		doc, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), false
		}
		return string(doc), true
	}
	return v, false
}

type postgres struct{}

// Postgres renders statements for PostgreSQL with JSONB properties.
// Parameters use the @name form understood by pgx.NamedArgs.
func Postgres() Dialect { return postgres{} }

func (postgres) Name() string { return "postgres" }

const pgReturning = " RETURNING id, label, properties::text AS properties"

func (postgres) Create(label string, props map[string]any) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	if err := checkKeys("property key", props); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   "INSERT INTO nodes (label, properties) VALUES (@label, @props::jsonb)" + pgReturning,
		Params: map[string]any{"label": label, "props": nonNil(props)},
	}, nil
}

func (postgres) Update(label string, id int64, props map[string]any) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	if err := checkKeys("property key", props); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   "UPDATE nodes SET properties = properties || @props::jsonb WHERE id = @id AND label = @label" + pgReturning,
		Params: map[string]any{"id": id, "label": label, "props": nonNil(props)},
	}, nil
}

func (postgres) Delete(label string, id int64) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   "DELETE FROM nodes WHERE id = @id AND label = @label",
		Params: map[string]any{"id": id, "label": label},
	}, nil
}

func (postgres) Get(label string, id int64) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   "SELECT id, label, properties::text AS properties FROM nodes WHERE id = @id AND label = @label",
		Params: map[string]any{"id": id, "label": label},
	}, nil
}

func (d postgres) Find(label string, m Match) (Query, error) {
	if err := checkMatch(label, m); err != nil {
		return Query{}, err
	}
	params := map[string]any{"label": label}
	var b strings.Builder
	b.WriteString("SELECT id, label, properties::text AS properties FROM nodes")
	b.WriteString(d.where(m.Where, params))
	b.WriteString(orderClause(m.OrderBy, func(f string) string { return "properties->'" + f + "'" }))
	if m.Limit > 0 {
		b.WriteString(" LIMIT @limit")
		params["limit"] = int64(m.Limit)
	}
	if m.Skip > 0 {
		b.WriteString(" OFFSET @skip")
		params["skip"] = int64(m.Skip)
	}
	return Query{Text: b.String(), Params: params}, nil
}

func (d postgres) Count(label string, where map[string]any) (Query, error) {
	if err := checkMatch(label, Match{Where: where}); err != nil {
		return Query{}, err
	}
	params := map[string]any{"label": label}
	text := "SELECT count(*) AS " + CountColumn + " FROM nodes" + d.where(where, params)
	return Query{Text: text, Params: params}, nil
}

func (postgres) Relate(relType, fromLabel string, fromID int64, toLabel string, toID int64) (Query, error) {
	if err := checkRelate(relType, fromLabel, toLabel); err != nil {
		return Query{}, err
	}
	return Query{
		Text: `INSERT INTO edges (src_id, dst_id, rel_type)
SELECT a.id, b.id, @rel_type FROM nodes a, nodes b
WHERE a.id = @from_id AND a.label = @from_label AND b.id = @to_id AND b.label = @to_label
ON CONFLICT DO NOTHING`,
		Params: relateParams(relType, fromLabel, fromID, toLabel, toID),
	}, nil
}

// where uses JSONB containment for scalars so that the GIN index on
// properties serves them. Containment is a subset test for arrays and
// objects, so composite values compare the whole stored value instead.
func (postgres) where(where map[string]any, params map[string]any) string {
	preds := predicates(where,
		func(key, param string, v any) string {
			if isComposite(v) {
				params[param] = v
				return fmt.Sprintf("properties->'%s' = @%s::jsonb", key, param)
			}
			params[param] = map[string]any{key: v}
			return fmt.Sprintf("properties @> @%s::jsonb", param)
		},
		func(key string) string { return fmt.Sprintf("properties->'%s' IS NULL", key) },
	)
	return " WHERE " + strings.Join(append([]string{"label = @label"}, preds...), " AND ")
}

// isComposite reports whether v encodes to a JSON array or object.
func isComposite(v any) bool {
	switch v.(type) {
	case []byte, time.Time:
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return true
	}
	return false
}

func relateParams(relType, fromLabel string, fromID int64, toLabel string, toID int64) map[string]any {
	return map[string]any{
		"rel_type":   relType,
		"from_id":    fromID,
		"from_label": fromLabel,
		"to_id":      toID,
		"to_label":   toLabel,
	}
}
