package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphorm/internal/store"
)

// fromDriver converts driver values to the types store.Node documents.
// Temporal values become time.Time, durations their ISO 8601 text.
func fromDriver(v any) any {
	switch x := v.(type) {
	case neo4j.Node:
		return nodeOf(x)
	case *neo4j.Node:
		if x == nil {
			return nil
		}
		return nodeOf(*x)
	case neo4j.Relationship:
		return map[string]any{
			"id":       x.Id,
			"type":     x.Type,
			"start_id": x.StartId,
			"end_id":   x.EndId,
			"props":    fromDriverMap(x.Props),
		}
	case neo4j.Date:
		return x.Time()
	case neo4j.LocalDateTime:
		return x.Time()
	case neo4j.LocalTime:
		return x.Time()
	case neo4j.OffsetTime:
		return x.Time()
	case neo4j.Duration:
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromDriver(e)
		}
		return out
	case map[string]any:
		return fromDriverMap(x)
	default:
		return v
	}
}

func fromDriverMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromDriver(v)
	}
	return out
}

func nodeOf(n neo4j.Node) store.Node {
	return store.Node{
		//lint:ignore SA1019 identity is the legacy numeric id matched by id(n)
		ID:     n.Id,
		Labels: append([]string(nil), n.Labels...),
		Props:  fromDriverMap(n.Props),
	}
}
