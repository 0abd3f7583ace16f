// Package sqlite is the embedded node store: nodes and edges tables with
// JSON properties, on the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"graphorm/internal/query"
	"graphorm/internal/store"
)

var (
	_ store.Database = (*Client)(nil)
	_ store.Schemer  = (*Client)(nil)
)

type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New opens the database named by a sqlite:// DSN and creates the nodes and
// edges tables when missing.
func New(ctx context.Context, dsn string, opts ...Option) (*Client, error) {
	driverDSN, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}

	db, err := sql.Open("sqlite", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if isMemory(driverDSN) {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	c := NewFromDB(db, opts...)
	if err := c.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewFromDB wraps an open handle without touching its schema.
func NewFromDB(db *sql.DB, opts ...Option) *Client {
	c := &Client{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Dialect() query.Dialect { return query.SQLite() }

func (c *Client) NewSession(ctx context.Context) (store.Session, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring sqlite connection: %w", err)
	}
	return &session{conn: conn, logger: c.logger}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.db.Close()
}
