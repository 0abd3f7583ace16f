package graph

import (
	"context"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphorm/internal/store"
)

type session struct {
	inner  neo4j.SessionWithContext
	logger *slog.Logger
}

func (s *session) Run(ctx context.Context, text string, params map[string]any) (*store.Result, error) {
	s.logger.Debug("running cypher", "query", text)
	res, err := s.inner.Run(ctx, text, params)
	if err != nil {
		return nil, err
	}
	return collect(ctx, res)
}

func (s *session) ExecuteRead(ctx context.Context, work store.TransactionWork) (any, error) {
	return s.inner.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&transaction{tx: tx, logger: s.logger})
	})
}

func (s *session) ExecuteWrite(ctx context.Context, work store.TransactionWork) (any, error) {
	return s.inner.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&transaction{tx: tx, logger: s.logger})
	})
}

func (s *session) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}

type transaction struct {
	tx     neo4j.ManagedTransaction
	logger *slog.Logger
}

func (t *transaction) Run(ctx context.Context, text string, params map[string]any) (*store.Result, error) {
	t.logger.Debug("running cypher in transaction", "query", text)
	res, err := t.tx.Run(ctx, text, params)
	if err != nil {
		return nil, err
	}
	return collect(ctx, res)
}

// collect buffers every record and then the summary, so the result stays
// usable after the session is closed.
func collect(ctx context.Context, res neo4j.ResultWithContext) (*store.Result, error) {
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := &store.Result{Records: make([]store.Record, 0, len(records))}
	for _, r := range records {
		values := make([]any, len(r.Values))
		for i, v := range r.Values {
			values[i] = fromDriver(v)
		}
		out.Records = append(out.Records, store.Record{Keys: r.Keys, Values: values})
	}

	summary, err := res.Consume(ctx)
	if err != nil {
		return nil, err
	}
	counters := summary.Counters()
	out.Summary = store.Summary{
		NodesCreated:         int64(counters.NodesCreated()),
		NodesDeleted:         int64(counters.NodesDeleted()),
		PropertiesSet:        int64(counters.PropertiesSet()),
		RelationshipsCreated: int64(counters.RelationshipsCreated()),
	}
	return out, nil
}
