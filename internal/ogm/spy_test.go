package ogm

import (
	"context"

	"graphorm/internal/query"
	"graphorm/internal/store"
)

// spyDB records every statement and how many sessions were opened and
// closed. Results are handed out in order; Run fails with err when set.
type spyDB struct {
	dialect    query.Dialect
	results    []*store.Result
	err        error
	sessionErr error

	runs   []query.Query
	opened int
	closed int
}

func newSpyDB(results ...*store.Result) *spyDB {
	return &spyDB{dialect: query.Cypher(), results: results}
}

func (db *spyDB) NewSession(ctx context.Context) (store.Session, error) {
	if db.sessionErr != nil {
		return nil, db.sessionErr
	}
	db.opened++
	return &spySession{db: db}, nil
}

func (db *spyDB) Dialect() query.Dialect { return db.dialect }

func (db *spyDB) Close(ctx context.Context) error { return nil }

func (db *spyDB) reset() {
	db.runs = nil
	db.opened = 0
	db.closed = 0
}

type spySession struct {
	db *spyDB
}

func (s *spySession) Run(ctx context.Context, text string, params map[string]any) (*store.Result, error) {
	s.db.runs = append(s.db.runs, query.Query{Text: text, Params: params})
	if s.db.err != nil {
		return nil, s.db.err
	}
	if len(s.db.results) == 0 {
		return &store.Result{}, nil
	}
	res := s.db.results[0]
	s.db.results = s.db.results[1:]
	return res, nil
}

func (s *spySession) ExecuteRead(ctx context.Context, work store.TransactionWork) (any, error) {
	return work(s)
}

func (s *spySession) ExecuteWrite(ctx context.Context, work store.TransactionWork) (any, error) {
	return work(s)
}

func (s *spySession) Close(ctx context.Context) error {
	s.db.closed++
	return nil
}

func nodeResult(nodes ...store.Node) *store.Result {
	res := &store.Result{}
	for _, n := range nodes {
		res.Records = append(res.Records, store.Record{Keys: []string{query.NodeColumn}, Values: []any{n}})
	}
	return res
}

func countResult(n int64) *store.Result {
	return &store.Result{Records: []store.Record{{Keys: []string{query.CountColumn}, Values: []any{n}}}}
}

func storeNode(id int64, props map[string]any) store.Node {
	return store.Node{ID: id, Props: props}
}
