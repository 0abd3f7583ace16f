package query

import (
	"fmt"
	"strings"
)

type cypher struct{}

// Cypher renders statements for Neo4j. Identity is the internal node id.
func Cypher() Dialect { return cypher{} }

func (cypher) Name() string { return "cypher" }

func (cypher) Create(label string, props map[string]any) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	if err := checkKeys("property key", props); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   fmt.Sprintf("CREATE (n:`%s` $props) RETURN n", label),
		Params: map[string]any{"props": nonNil(props)},
	}, nil
}

func (cypher) Update(label string, id int64, props map[string]any) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	if err := checkKeys("property key", props); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   fmt.Sprintf("MATCH (n:`%s`) WHERE id(n) = $id SET n += $props RETURN n", label),
		Params: map[string]any{"id": id, "props": nonNil(props)},
	}, nil
}

func (cypher) Delete(label string, id int64) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   fmt.Sprintf("MATCH (n:`%s`) WHERE id(n) = $id DETACH DELETE n", label),
		Params: map[string]any{"id": id},
	}, nil
}

func (cypher) Get(label string, id int64) (Query, error) {
	if err := checkIdent("label", label); err != nil {
		return Query{}, err
	}
	return Query{
		Text:   fmt.Sprintf("MATCH (n:`%s`) WHERE id(n) = $id RETURN n", label),
		Params: map[string]any{"id": id},
	}, nil
}

func (c cypher) Find(label string, m Match) (Query, error) {
	if err := checkMatch(label, m); err != nil {
		return Query{}, err
	}
	var b strings.Builder
	params := make(map[string]any)
	b.WriteString(c.match(label, m.Where, params))
	b.WriteString(" RETURN n")
	b.WriteString(orderClause(m.OrderBy, func(f string) string { return "n." + f }))
	if m.Skip > 0 {
		b.WriteString(" SKIP $skip")
		params["skip"] = int64(m.Skip)
	}
	if m.Limit > 0 {
		b.WriteString(" LIMIT $limit")
		params["limit"] = int64(m.Limit)
	}
	return Query{Text: b.String(), Params: params}, nil
}

func (c cypher) Count(label string, where map[string]any) (Query, error) {
	if err := checkMatch(label, Match{Where: where}); err != nil {
		return Query{}, err
	}
	params := make(map[string]any)
	text := c.match(label, where, params) + " RETURN count(n) AS " + CountColumn
	return Query{Text: text, Params: params}, nil
}

func (cypher) Relate(relType, fromLabel string, fromID int64, toLabel string, toID int64) (Query, error) {
	if err := checkRelate(relType, fromLabel, toLabel); err != nil {
		return Query{}, err
	}
	text := fmt.Sprintf("MATCH (a:`%s`), (b:`%s`) WHERE id(a) = $from_id AND id(b) = $to_id MERGE (a)-[r:`%s`]->(b) RETURN count(r) AS %s",
		fromLabel, toLabel, relType, CountColumn)
	return Query{
		Text:   text,
		Params: map[string]any{"from_id": fromID, "to_id": toID},
	}, nil
}

func (cypher) match(label string, where map[string]any, params map[string]any) string {
	preds := predicates(where,
		func(key, param string, v any) string {
			params[param] = v
			return fmt.Sprintf("n.%s = $%s", key, param)
		},
		func(key string) string { return fmt.Sprintf("n.%s IS NULL", key) },
	)
	text := fmt.Sprintf("MATCH (n:`%s`)", label)
	if len(preds) > 0 {
		text += " WHERE " + strings.Join(preds, " AND ")
	}
	return text
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
