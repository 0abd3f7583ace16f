// Package config loads the graphorm.yaml project file and the entity schema
// it points at.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BackendNeo4j    = "neo4j"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	DefaultSchemaFile = "schema.yaml"
)

type ProjectConfig struct {
	Project  string      `yaml:"project"`
	Version  int         `yaml:"version"`
	Backend  string      `yaml:"backend"`
	Neo4j    Neo4jConfig `yaml:"neo4j"`
	SQL      SQLConfig   `yaml:"sql"`
	Schema   string      `yaml:"schema"`
	Fixtures []string    `yaml:"fixtures"`
	Exclude  []string    `yaml:"exclude"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type SQLConfig struct {
	DSN string `yaml:"dsn"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg.dir = filepath.Dir(path)
	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = BackendNeo4j
	}
	switch cfg.Backend {
	case BackendNeo4j:
		if strings.TrimSpace(cfg.Neo4j.URI) == "" {
			return fmt.Errorf("neo4j uri is required")
		}
		if cfg.Neo4j.Database == "" {
			cfg.Neo4j.Database = "neo4j"
		}
	case BackendSQLite, BackendPostgres:
		if strings.TrimSpace(cfg.SQL.DSN) == "" {
			return fmt.Errorf("sql dsn is required for backend %s", cfg.Backend)
		}
	default:
		return fmt.Errorf("unknown backend: %s", cfg.Backend)
	}

	if cfg.Schema == "" {
		cfg.Schema = DefaultSchemaFile
	}

	seen := make(map[string]struct{})
	for i, f := range cfg.Fixtures {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("fixture %d path is empty", i)
		}
		if _, exists := seen[f]; exists {
			return fmt.Errorf("duplicate fixture path: %s", f)
		}
		seen[f] = struct{}{}
	}

	return nil
}

// Path resolves p against the directory of the config file.
func (cfg *ProjectConfig) Path(p string) string {
	if filepath.IsAbs(p) || cfg.dir == "" {
		return p
	}
	return filepath.Join(cfg.dir, p)
}

// SchemaPath is the resolved location of the entity schema.
func (cfg *ProjectConfig) SchemaPath() string {
	return cfg.Path(cfg.Schema)
}

// FixturePaths lists the fixture files, expanding globs and dropping
// anything matched by an exclude pattern.
func (cfg *ProjectConfig) FixturePaths() ([]string, error) {
	var out []string
	for _, pattern := range cfg.Fixtures {
		matches, err := filepath.Glob(cfg.Path(pattern))
		if err != nil {
			return nil, fmt.Errorf("expanding fixture pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			if !cfg.excluded(m) {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (cfg *ProjectConfig) excluded(path string) bool {
	for _, pattern := range cfg.Exclude {
		if ok, _ := filepath.Match(cfg.Path(pattern), path); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}
