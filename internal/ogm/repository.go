package ogm

import (
	"context"
	"fmt"

	"graphorm/internal/metadata"
	"graphorm/internal/query"
	"graphorm/internal/store"
)

// EntityPtr constrains P to the pointer type of a mapped struct T.
type EntityPtr[T any] interface {
	*T
	Entity
}

type FindOptions struct {
	Where   map[string]any
	OrderBy []query.Order
	Skip    int
	Limit   int
}

// Repository runs collection queries for one kind.
type Repository[T any, P EntityPtr[T]] struct {
	db        store.Database
	reg       *metadata.Registry
	key       metadata.Key
	newEntity func() P
}

func NewRepository[T any, P EntityPtr[T]](db store.Database, reg *metadata.Registry) *Repository[T, P] {
	return &Repository[T, P]{
		db:        db,
		reg:       reg,
		key:       metadata.KeyFor[T](),
		newEntity: func() P { return P(new(T)) },
	}
}

// NewDocumentRepository returns a repository for a kind declared with
// DeclareDocument.
func NewDocumentRepository(db store.Database, reg *metadata.Registry, kind string) *Repository[Document, *Document] {
	return &Repository[Document, *Document]{
		db:  db,
		reg: reg,
		key: metadata.DocumentKey(kind),
		newEntity: func() *Document {
			return &Document{Kind: kind, Values: make(map[string]any)}
		},
	}
}

func (r *Repository[T, P]) Descriptor() (*metadata.EntityDescriptor, error) {
	return r.reg.Lookup(r.key)
}

// FindByID returns nil when no node of this kind has the identity.
func (r *Repository[T, P]) FindByID(ctx context.Context, id int64) (P, error) {
	desc, err := r.Descriptor()
	if err != nil {
		return nil, err
	}
	q, err := r.db.Dialect().Get(desc.Label, id)
	if err != nil {
		return nil, err
	}
	res, err := run(ctx, r.db, q)
	if err != nil {
		return nil, err
	}
	rec, ok := res.First()
	if !ok {
		return nil, nil
	}
	return r.hydrate(desc, rec)
}

// FindOne returns the first match, or nil.
func (r *Repository[T, P]) FindOne(ctx context.Context, where map[string]any) (P, error) {
	found, err := r.Find(ctx, FindOptions{Where: where, Limit: 1})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// Find returns the matching instances in the order the database returns
// them.
func (r *Repository[T, P]) Find(ctx context.Context, opts FindOptions) ([]P, error) {
	desc, err := r.Descriptor()
	if err != nil {
		return nil, err
	}
	where, err := filterValues(desc, opts.Where)
	if err != nil {
		return nil, err
	}
	q, err := r.db.Dialect().Find(desc.Label, query.Match{
		Where:   where,
		OrderBy: opts.OrderBy,
		Skip:    opts.Skip,
		Limit:   opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	res, err := run(ctx, r.db, q)
	if err != nil {
		return nil, err
	}
	out := make([]P, 0, len(res.Records))
	for _, rec := range res.Records {
		e, err := r.hydrate(desc, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Count returns the number of matches, or 0 when no row comes back.
func (r *Repository[T, P]) Count(ctx context.Context, where map[string]any) (int64, error) {
	desc, err := r.Descriptor()
	if err != nil {
		return 0, err
	}
	filter, err := filterValues(desc, where)
	if err != nil {
		return 0, err
	}
	q, err := r.db.Dialect().Count(desc.Label, filter)
	if err != nil {
		return 0, err
	}
	res, err := run(ctx, r.db, q)
	if err != nil {
		return 0, err
	}
	rec, ok := res.First()
	if !ok {
		return 0, nil
	}
	return rec.Int64Of(query.CountColumn)
}

func (r *Repository[T, P]) Exists(ctx context.Context, where map[string]any) (bool, error) {
	n, err := r.Count(ctx, where)
	return n > 0, err
}

// Create returns a new unsaved instance holding data. Keys are property
// keys or Go field names. Nothing is validated until Save.
func (r *Repository[T, P]) Create(data map[string]any) (P, error) {
	desc, err := r.Descriptor()
	if err != nil {
		return nil, err
	}
	e := r.newEntity()
	Attach(e, r.db, r.reg)
	acc := accessorOf(e)
	for k, v := range data {
		p, ok := desc.Property(k)
		if !ok {
			p, ok = desc.PropertyByField(k)
		}
		if !ok {
			return nil, fmt.Errorf("creating %s: unknown property %q", desc.Name, k)
		}
		if err := acc.set(p, v); err != nil {
			return nil, fmt.Errorf("creating %s: %w", desc.Name, err)
		}
	}
	return e, nil
}

// Save attaches e to this repository's database if it has none and saves
// it.
func (r *Repository[T, P]) Save(ctx context.Context, e P) error {
	attachMissing(e, r.db, r.reg)
	return e.base().Save(ctx)
}

func (r *Repository[T, P]) Delete(ctx context.Context, e P) (bool, error) {
	attachMissing(e, r.db, r.reg)
	return e.base().Delete(ctx)
}

func (r *Repository[T, P]) hydrate(desc *metadata.EntityDescriptor, rec store.Record) (P, error) {
	e := r.newEntity()
	Attach(e, r.db, r.reg)
	if err := e.base().hydrate(desc, accessorOf(e), rec); err != nil {
		return nil, err
	}
	return e, nil
}

// filterValues passes values of declared properties through Transformer.To
// so filters compare against what Save stores.
func filterValues(desc *metadata.EntityDescriptor, where map[string]any) (map[string]any, error) {
	if len(where) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(where))
	for k, v := range where {
		if p, ok := desc.Property(k); ok && v != nil {
			stored, err := toStorage(desc, p, v)
			if err != nil {
				return nil, err
			}
			v = stored
		}
		nv, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}
