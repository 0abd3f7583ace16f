package ogm

import (
	"context"
	"fmt"

	"graphorm/internal/metadata"
	"graphorm/internal/query"
	"graphorm/internal/store"
)

// Relate writes the edge declared by from's relationship field to to. Both
// instances must be persisted. For an "in" relationship the edge points
// from to at from. Save never writes edges; this is the only path that does.
func Relate(ctx context.Context, from Entity, field string, to Entity) error {
	fb, tb := from.base(), to.base()
	if err := fb.attached(); err != nil {
		return err
	}
	desc, err := fb.reg.Lookup(fb.key)
	if err != nil {
		return err
	}
	rel, ok := desc.Relationship(field)
	if !ok {
		return &metadata.UnsupportedKeyError{Kind: desc.Name, Field: field, Reason: "no relationship declared"}
	}
	target, err := fb.reg.ResolveTarget(rel)
	if err != nil {
		return err
	}
	if tb.self == nil {
		attachMissing(to, fb.db, fb.reg)
	}
	if tb.key != target.Key {
		return fmt.Errorf("relating %s.%s: target must be %s, got %s", desc.Name, field, target.Name, tb.key.Name())
	}
	if !fb.hasID {
		return &InvalidStateError{Op: "relate", Reason: desc.Name + " without identity"}
	}
	if !tb.hasID {
		return &InvalidStateError{Op: "relate", Reason: target.Name + " without identity"}
	}

	src, dst := endpoint{desc, fb.id}, endpoint{target, tb.id}
	if rel.Direction == metadata.In {
		src, dst = dst, src
	}
	q, err := fb.db.Dialect().Relate(rel.RelationType, src.desc.Label, src.id, dst.desc.Label, dst.id)
	if err != nil {
		return err
	}

	session, err := fb.db.NewSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	// Both endpoints are checked in the same write transaction as the edge so
	// that a concurrently deleted node surfaces as not found.
	_, err = session.ExecuteWrite(ctx, func(tx store.Transaction) (any, error) {
		for _, e := range []endpoint{src, dst} {
			if err := e.exists(ctx, fb.db.Dialect(), tx); err != nil {
				return nil, err
			}
		}
		return tx.Run(ctx, q.Text, q.Params)
	})
	return err
}

type endpoint struct {
	desc *metadata.EntityDescriptor
	id   int64
}

func (e endpoint) exists(ctx context.Context, d query.Dialect, tx store.Transaction) error {
	q, err := d.Get(e.desc.Label, e.id)
	if err != nil {
		return err
	}
	res, err := tx.Run(ctx, q.Text, q.Params)
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		return &NotFoundError{Kind: e.desc.Name, ID: e.id}
	}
	return nil
}
