package sqlite

import (
	"context"
	"fmt"
	"strings"

	"graphorm/internal/metadata"
	"graphorm/internal/store"
)

const tablesDDL = `
CREATE TABLE IF NOT EXISTS nodes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	label      TEXT NOT NULL,
	properties TEXT NOT NULL DEFAULT '{}' CHECK (json_valid(properties))
);

-- edges are removed with their nodes, like DETACH DELETE
CREATE TABLE IF NOT EXISTS edges (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	src_id   INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	dst_id   INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	rel_type TEXT NOT NULL,
	CONSTRAINT uq_edge UNIQUE (src_id, dst_id, rel_type)
);

CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes (label);
CREATE INDEX IF NOT EXISTS idx_edges_src ON edges (src_id);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges (dst_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges (rel_type);
`

func (c *Client) createTables(ctx context.Context) error {
	return c.execAll(ctx, splitStatements(tablesDDL))
}

// EnsureSchema creates a partial expression index per indexed property and
// a unique one per unique property, scoped to the property's label.
func (c *Client) EnsureSchema(ctx context.Context, reg *metadata.Registry) error {
	statements := splitStatements(tablesDDL)
	statements = append(statements, indexStatements(store.IndexSpecs(reg))...)
	return c.execAll(ctx, statements)
}

func indexStatements(specs []store.IndexSpec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		unique := ""
		if s.Unique {
			unique = "UNIQUE "
		}
		out = append(out, fmt.Sprintf(
			"CREATE %sINDEX IF NOT EXISTS %s ON nodes (json_extract(properties, '$.%s')) WHERE label = '%s';",
			unique, s.Name(), s.Key, s.Label))
	}
	return out
}

func (c *Client) execAll(ctx context.Context, statements []string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		c.logger.Debug("ensuring schema", "statement", stmt)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}
