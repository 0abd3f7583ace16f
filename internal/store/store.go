// Package store defines the database client contract the mapper runs on.
// Backends live in internal/graph (Neo4j), internal/store/sqlite and
// internal/store/postgres.
package store

import (
	"context"

	"graphorm/internal/metadata"
	"graphorm/internal/query"
)

// Database is a shared handle to one backend. It is not owned by the
// entities that use it.
type Database interface {
	NewSession(ctx context.Context) (Session, error)
	Dialect() query.Dialect
	Close(ctx context.Context) error
}

// Session is scoped to a single operation and must be closed by whoever
// opened it. Run executes in auto-commit mode.
type Session interface {
	Run(ctx context.Context, text string, params map[string]any) (*Result, error)
	ExecuteRead(ctx context.Context, work TransactionWork) (any, error)
	ExecuteWrite(ctx context.Context, work TransactionWork) (any, error)
	Close(ctx context.Context) error
}

type Transaction interface {
	Run(ctx context.Context, text string, params map[string]any) (*Result, error)
}

type TransactionWork func(tx Transaction) (any, error)

// Schemer is implemented by backends that can create indexes and unique
// constraints for the declared kinds.
type Schemer interface {
	EnsureSchema(ctx context.Context, reg *metadata.Registry) error
}
