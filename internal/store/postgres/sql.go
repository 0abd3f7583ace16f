package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"graphorm/internal/store"
)

// queryer is satisfied by *pgxpool.Conn and pgx.Tx.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type session struct {
	conn   *pgxpool.Conn
	logger *slog.Logger
}

func (s *session) Run(ctx context.Context, text string, params map[string]any) (*store.Result, error) {
	return runSQL(ctx, s.conn, s.logger, text, params)
}

func (s *session) ExecuteRead(ctx context.Context, work store.TransactionWork) (any, error) {
	return s.execute(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, work)
}

func (s *session) ExecuteWrite(ctx context.Context, work store.TransactionWork) (any, error) {
	return s.execute(ctx, pgx.TxOptions{}, work)
}

func (s *session) execute(ctx context.Context, opts pgx.TxOptions, work store.TransactionWork) (any, error) {
	tx, err := s.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	out, err := work(&transaction{tx: tx, logger: s.logger})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error {
	s.conn.Release()
	return nil
}

type transaction struct {
	tx     pgx.Tx
	logger *slog.Logger
}

func (t *transaction) Run(ctx context.Context, text string, params map[string]any) (*store.Result, error) {
	return runSQL(ctx, t.tx, t.logger, text, params)
}

func runSQL(ctx context.Context, q queryer, logger *slog.Logger, text string, params map[string]any) (*store.Result, error) {
	logger.Debug("running sql", "query", text)
	var args []any
	if len(params) > 0 {
		args = append(args, pgx.NamedArgs(params))
	}

	if !store.ReturnsRows(text) {
		tag, err := q.Exec(ctx, text, args...)
		if err != nil {
			return nil, err
		}
		return &store.Result{Summary: store.SQLSummary(text, tag.RowsAffected())}, nil
	}

	rows, err := q.Query(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	out := &store.Result{Records: make([]store.Record, 0)}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("getting row values: %w", err)
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
