// Package graph is the Neo4j backend: a store.Database over the official
// driver, with node values converted to driver-neutral types.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphorm/internal/query"
	"graphorm/internal/store"
)

var (
	_ store.Database = (*Client)(nil)
	_ store.Schemer  = (*Client)(nil)
)

type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

type Option func(*Client)

// WithLogger logs every statement at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(ctx context.Context, uri, username, password, database string, opts ...Option) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	c := &Client{driver: driver, database: database, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Dialect() query.Dialect { return query.Cypher() }

func (c *Client) NewSession(ctx context.Context) (store.Session, error) {
	if c == nil || c.driver == nil {
		return nil, fmt.Errorf("graph client is nil")
	}
	return &session{
		inner:  c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database}),
		logger: c.logger,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}
