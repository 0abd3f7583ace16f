// Package postgres stores nodes and edges in PostgreSQL with JSONB
// properties, through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"graphorm/internal/query"
	"graphorm/internal/store"
)

var (
	_ store.Database = (*Client)(nil)
	_ store.Schemer  = (*Client)(nil)
)

type Client struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New connects to dsn and creates the nodes and edges tables when missing.
func New(ctx context.Context, dsn string, opts ...Option) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	c := &Client{pool: pool, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Dialect() query.Dialect { return query.Postgres() }

// NewSession pins one pooled connection until the session is closed.
func (c *Client) NewSession(ctx context.Context) (store.Session, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring postgres connection: %w", err)
	}
	return &session{conn: conn, logger: c.logger}, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}
