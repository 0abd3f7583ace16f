package postgres

import (
	"context"
	"fmt"
	"strings"

	"graphorm/internal/metadata"
	"graphorm/internal/store"
)

// PostgreSQL runs a multi-statement Exec in one implicit transaction, so the
// DDL below applies atomically.
const tablesDDL = `
CREATE TABLE IF NOT EXISTS nodes (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    label      TEXT NOT NULL,
    properties JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS edges (
    id       BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    src_id   BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    dst_id   BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    rel_type TEXT NOT NULL,
    CONSTRAINT uq_edge UNIQUE (src_id, dst_id, rel_type)
);

CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes (label);
CREATE INDEX IF NOT EXISTS idx_nodes_properties ON nodes USING GIN (properties jsonb_path_ops);
CREATE INDEX IF NOT EXISTS idx_edges_src ON edges (src_id);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges (dst_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges (rel_type);
`

func (c *Client) createTables(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, tablesDDL); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// EnsureSchema adds a partial index per indexed property and a partial
// unique index per unique property on top of the base tables.
func (c *Client) EnsureSchema(ctx context.Context, reg *metadata.Registry) error {
	indexes := indexStatements(store.IndexSpecs(reg))
	c.logger.Debug("ensuring schema", "indexes", len(indexes))
	ddl := tablesDDL + strings.Join(indexes, "\n")
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

func indexStatements(specs []store.IndexSpec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		unique := ""
		if s.Unique {
			unique = "UNIQUE "
		}
		out = append(out, fmt.Sprintf(
			"CREATE %sINDEX IF NOT EXISTS %s ON nodes ((properties->'%s')) WHERE label = '%s';",
			unique, s.Name(), s.Key, s.Label))
	}
	return out
}
