package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Connection pragmas go in the DSN so that every pooled connection gets
// them, not only the first.
var pragmas = []string{
	"busy_timeout(30000)",
	"foreign_keys(1)",
}

const walPragma = "journal_mode(WAL)"

func parseDSN(dsn string) (string, error) {
	path, query, err := splitDSN(dsn)
	if err != nil {
		return "", err
	}
	return withPragmas(path, query), nil
}

func splitDSN(dsn string) (string, string, error) {
	if !strings.HasPrefix(dsn, "sqlite://") {
		return "", "", fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}

	rest := strings.TrimPrefix(dsn, "sqlite://")
	var query string
	if i := strings.Index(rest, "?"); i >= 0 {
		rest, query = rest[:i], rest[i+1:]
	}

	if rest == "" {
		return "", "", fmt.Errorf("sqlite DSN has no path")
	}
	if rest == ":memory:" {
		return rest, query, nil
	}

	unescaped, err := url.PathUnescape(rest)
	if err != nil {
		return "", "", fmt.Errorf("unescaping path: %w", err)
	}
	rest = unescaped

	if !filepath.IsAbs(rest) && !strings.HasPrefix(rest, "./") {
		rest = "./" + rest
	}
	return rest, query, nil
}

func withPragmas(path, query string) string {
	params := []string{}
	if query != "" {
		params = append(params, query)
	}
	list := pragmas
	if !isMemory(path) {
		list = append(append([]string(nil), pragmas...), walPragma)
	}
	for _, p := range list {
		name := p[:strings.Index(p, "(")]
		if strings.Contains(query, "_pragma="+name) {
			continue
		}
		params = append(params, "_pragma="+p)
	}
	return path + "?" + strings.Join(params, "&")
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
