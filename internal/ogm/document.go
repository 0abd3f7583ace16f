package ogm

import (
	"context"
	"fmt"

	"graphorm/internal/metadata"
	"graphorm/internal/store"
)

// Document is an instance of a kind declared without a Go struct, such as
// the kinds of a schema file. Values holds property values by key.
type Document struct {
	Node
	Kind   string
	Values map[string]any
}

func (d *Document) EntityKey() metadata.Key { return metadata.DocumentKey(d.Kind) }

func (d *Document) Get(key string) any { return d.Values[key] }

func (d *Document) Set(key string, v any) {
	if d.Values == nil {
		d.Values = make(map[string]any)
	}
	d.Values[key] = v
}

// Documents serves serialized documents of every declared document kind.
// The CLI and the MCP server use it.
type Documents struct {
	db  store.Database
	reg *metadata.Registry
}

func NewDocuments(db store.Database, reg *metadata.Registry) *Documents {
	return &Documents{db: db, reg: reg}
}

// Kinds lists the declared document kinds in declaration order.
func (s *Documents) Kinds() []string {
	var kinds []string
	for _, d := range s.reg.Entities() {
		if d.Key.IsDocument() {
			kinds = append(kinds, d.Name)
		}
	}
	return kinds
}

// Repository returns the repository for kind, failing when it is not
// declared.
func (s *Documents) Repository(kind string) (*Repository[Document, *Document], error) {
	repo := NewDocumentRepository(s.db, s.reg, kind)
	if _, err := repo.Descriptor(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (s *Documents) Find(ctx context.Context, kind string, opts FindOptions) ([]map[string]any, error) {
	repo, err := s.Repository(kind)
	if err != nil {
		return nil, err
	}
	docs, err := repo.Find(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		m, err := d.Serialize()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Get returns nil when no document has the identity.
func (s *Documents) Get(ctx context.Context, kind string, id int64) (map[string]any, error) {
	repo, err := s.Repository(kind)
	if err != nil {
		return nil, err
	}
	d, err := repo.FindByID(ctx, id)
	if err != nil || d == nil {
		return nil, err
	}
	return d.Serialize()
}

func (s *Documents) Count(ctx context.Context, kind string, where map[string]any) (int64, error) {
	repo, err := s.Repository(kind)
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, where)
}

// Create saves a new document built from values.
func (s *Documents) Create(ctx context.Context, kind string, values map[string]any) (*Document, error) {
	repo, err := s.Repository(kind)
	if err != nil {
		return nil, err
	}
	d, err := repo.Create(values)
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("saving %s: %w", kind, err)
	}
	return d, nil
}
