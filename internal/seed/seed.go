package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"graphorm/internal/metadata"
	"graphorm/internal/ogm"
	"graphorm/internal/query"
	"graphorm/internal/store"
)

type Result struct {
	NodesCreated int
	EdgesCreated int
	// Invalid counts items rejected by validation. Their errors are in
	// Errors too.
	Invalid int
	Errors  []error
}

type Options struct {
	// EnsureSchema creates indexes and constraints first when the database
	// supports it.
	EnsureSchema bool
	Logger       *slog.Logger
}

type created struct {
	item Item
	path string
	doc  *ogm.Document
}

// Run creates every fixture item, then every link. Item failures are
// collected in the result; only schema setup failures abort.
func Run(ctx context.Context, db store.Database, reg *metadata.Registry, paths []string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.EnsureSchema {
		if s, ok := db.(store.Schemer); ok {
			if err := s.EnsureSchema(ctx, reg); err != nil {
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
	}

	docs := ogm.NewDocuments(db, reg)
	result := &Result{}
	byRef := make(map[string]*ogm.Document)
	var done []created

	for _, path := range paths {
		f, err := ParseFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
			continue
		}

		for i, item := range f.Items {
			where := fmt.Sprintf("%s item %d", path, i)
			if item.Ref != "" {
				where = fmt.Sprintf("%s item %q", path, item.Ref)
				if _, dup := byRef[item.Ref]; dup {
					result.Errors = append(result.Errors, fmt.Errorf("%s: duplicate ref", where))
					continue
				}
			}

			desc, err := reg.Lookup(metadata.DocumentKey(item.Kind))
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", where, err))
				continue
			}

			doc, err := docs.Create(ctx, item.Kind, filterProperties(item.Values, desc, logger))
			if err != nil {
				if errors.Is(err, ogm.ErrValidation) {
					result.Invalid++
				}
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", where, err))
				continue
			}
			result.NodesCreated++
			logger.Debug("seeded node", "kind", item.Kind, "ref", item.Ref)

			if item.Ref != "" {
				byRef[item.Ref] = doc
			}
			done = append(done, created{item: item, path: path, doc: doc})
		}
	}

	for _, c := range done {
		for _, key := range query.SortedKeys(c.item.Links) {
			targets, _ := refs(c.item.Links[key])
			for _, ref := range targets {
				target, ok := byRef[ref]
				if !ok {
					result.Errors = append(result.Errors, fmt.Errorf("%s: link %s references unknown ref %q", c.path, key, ref))
					continue
				}
				if err := ogm.Relate(ctx, c.doc, key, target); err != nil {
					result.Errors = append(result.Errors, fmt.Errorf("%s: linking %s to %q: %w", c.path, key, ref, err))
					continue
				}
				result.EdgesCreated++
			}
		}
	}

	return result, nil
}

// filterProperties keeps the values of declared properties.
func filterProperties(values map[string]any, desc *metadata.EntityDescriptor, logger *slog.Logger) map[string]any {
	props := make(map[string]any, len(values))
	for key, value := range values {
		if _, ok := desc.Property(key); !ok {
			logger.Debug("dropping undeclared fixture value", "kind", desc.Name, "key", key)
			continue
		}
		props[key] = value
	}
	return props
}
