package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphorm/internal/metadata"
	"graphorm/internal/store"
)

// EnsureSchema creates a uniqueness constraint for every unique property
// and a range index for every indexed one. Existing ones are left alone.
func (c *Client) EnsureSchema(ctx context.Context, reg *metadata.Registry) error {
	statements := schemaStatements(store.IndexSpecs(reg))
	if len(statements) == 0 {
		return nil
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	for _, stmt := range statements {
		c.logger.Debug("ensuring schema", "statement", stmt)
		if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		}); err != nil {
			return fmt.Errorf("ensuring indexes: %w", err)
		}
	}

	return nil
}

func schemaStatements(specs []store.IndexSpec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		if s.Unique {
			out = append(out, fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:`%s`) REQUIRE n.%s IS UNIQUE", s.Name(), s.Label, s.Key))
			continue
		}
		out = append(out, fmt.Sprintf("CREATE INDEX %s IF NOT EXISTS FOR (n:`%s`) ON (n.%s)", s.Name(), s.Label, s.Key))
	}
	return out
}
