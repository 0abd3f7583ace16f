package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"graphorm/internal/query"
	"graphorm/internal/store"
)

// queryer is satisfied by *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// session holds one pooled connection until Close.
type session struct {
	conn   *sql.Conn
	logger *slog.Logger
}

func (s *session) Run(ctx context.Context, text string, params map[string]any) (*store.Result, error) {
	return runSQL(ctx, s.conn, s.logger, text, params)
}

func (s *session) ExecuteRead(ctx context.Context, work store.TransactionWork) (any, error) {
	return s.execute(ctx, work)
}

func (s *session) ExecuteWrite(ctx context.Context, work store.TransactionWork) (any, error) {
	return s.execute(ctx, work)
}

func (s *session) execute(ctx context.Context, work store.TransactionWork) (any, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	out, err := work(&transaction{tx: tx, logger: s.logger})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error {
	return s.conn.Close()
}

type transaction struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (t *transaction) Run(ctx context.Context, text string, params map[string]any) (*store.Result, error) {
	return runSQL(ctx, t.tx, t.logger, text, params)
}

func runSQL(ctx context.Context, q queryer, logger *slog.Logger, text string, params map[string]any) (*store.Result, error) {
	logger.Debug("running sql", "query", text)
	args := namedArgs(params)

	if !store.ReturnsRows(text) {
		res, err := q.ExecContext(ctx, text, args...)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("reading affected rows: %w", err)
		}
		return &store.Result{Summary: store.SQLSummary(text, affected)}, nil
	}

	rows, err := q.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("getting columns: %w", err)
	}

	out := &store.Result{Records: make([]store.Record, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		rec, err := store.SQLRecord(columns, values)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sql rows: %w", err)
	}

	out.Summary = store.SQLSummary(text, int64(len(out.Records)))
	return out, nil
}

// namedArgs binds params as :name arguments in a stable order.
func namedArgs(params map[string]any) []any {
	args := make([]any, 0, len(params))
	for _, k := range query.SortedKeys(params) {
		args = append(args, sql.Named(k, params[k]))
	}
	return args
}
