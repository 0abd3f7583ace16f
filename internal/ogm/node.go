// Package ogm maps declared Go types onto graph nodes. Types embed Node,
// are declared once against a metadata.Registry, and are then saved,
// reloaded, deleted and queried through a store.Database.
package ogm

import (
	"context"
	"fmt"
	"reflect"

	"graphorm/internal/metadata"
	"graphorm/internal/query"
	"graphorm/internal/store"
)

// Entity is implemented by every type that embeds Node.
type Entity interface {
	base() *Node
}

// Node carries the identity and database handle of a mapped instance. The
// database is shared; Node never closes it.
type Node struct {
	id     int64
	hasID  bool
	loaded bool

	db   store.Database
	reg  *metadata.Registry
	key  metadata.Key
	self Entity
}

func (n *Node) base() *Node { return n }

// ID returns the database identity, if the instance has one.
func (n *Node) ID() (int64, bool) { return n.id, n.hasID }

func (n *Node) SetID(id int64) {
	n.id = id
	n.hasID = true
}

// Loaded reports whether the instance was read from or written to the
// database at least once.
func (n *Node) Loaded() bool { return n.loaded }

func (n *Node) Persisted() bool { return n.hasID }

// Attach binds e to db and reg. Entities built by a Repository are
// attached already.
func Attach(e Entity, db store.Database, reg *metadata.Registry) {
	b := e.base()
	b.self = e
	b.db = db
	b.reg = reg
	b.key = keyOf(e)
}

// attachMissing fills in whatever Attach would have set, keeping an
// existing database handle.
func attachMissing(e Entity, db store.Database, reg *metadata.Registry) {
	b := e.base()
	b.self = e
	b.key = keyOf(e)
	if b.db == nil {
		b.db = db
	}
	if b.reg == nil {
		b.reg = reg
	}
}

func keyOf(e Entity) metadata.Key {
	if d, ok := e.(*Document); ok {
		return d.EntityKey()
	}
	return metadata.KeyOf(reflect.TypeOf(e))
}

func accessorOf(e Entity) accessor {
	if d, ok := e.(*Document); ok {
		if d.Values == nil {
			d.Values = make(map[string]any)
		}
		return mapAccessor(d.Values)
	}
	return structAccessor{v: reflect.ValueOf(e).Elem()}
}

func (n *Node) attached() error {
	if n.self == nil || n.db == nil || n.reg == nil {
		return ErrDetached
	}
	return nil
}

// Save validates every declared property and then creates the node, or
// updates it when the instance has an identity. Stored values are read
// back into the instance.
func (n *Node) Save(ctx context.Context) error {
	if err := n.attached(); err != nil {
		return err
	}
	desc, err := n.reg.Lookup(n.key)
	if err != nil {
		return err
	}
	acc := accessorOf(n.self)

	values, err := storageValues(desc, acc)
	if err != nil {
		return err
	}
	if problems := Check(desc, values); len(problems) > 0 {
		return problems[0]
	}
	props, err := normalizeProps(values)
	if err != nil {
		return fmt.Errorf("saving %s: %w", desc.Name, err)
	}

	var q query.Query
	if n.hasID {
		q, err = n.db.Dialect().Update(desc.Label, n.id, props)
	} else {
		q, err = n.db.Dialect().Create(desc.Label, props)
	}
	if err != nil {
		return err
	}

	res, err := run(ctx, n.db, q)
	if err != nil {
		return err
	}
	rec, ok := res.First()
	if !ok {
		if n.hasID {
			return &NotFoundError{Kind: desc.Name, ID: n.id}
		}
		return fmt.Errorf("saving %s: create returned no record", desc.Name)
	}
	return n.hydrate(desc, acc, rec)
}

// Delete removes the node and reports whether anything was deleted. On
// success the instance loses its identity.
func (n *Node) Delete(ctx context.Context) (bool, error) {
	if !n.hasID {
		return false, &InvalidStateError{Op: "delete", Reason: "without identity"}
	}
	if err := n.attached(); err != nil {
		return false, err
	}
	desc, err := n.reg.Lookup(n.key)
	if err != nil {
		return false, err
	}
	q, err := n.db.Dialect().Delete(desc.Label, n.id)
	if err != nil {
		return false, err
	}
	res, err := run(ctx, n.db, q)
	if err != nil {
		return false, err
	}
	if res.Summary.NodesDeleted == 0 {
		return false, nil
	}
	n.id = 0
	n.hasID = false
	n.loaded = false
	return true, nil
}

// Reload replaces the declared properties with the stored ones.
func (n *Node) Reload(ctx context.Context) error {
	if !n.hasID {
		return &InvalidStateError{Op: "reload", Reason: "without identity"}
	}
	if err := n.attached(); err != nil {
		return err
	}
	desc, err := n.reg.Lookup(n.key)
	if err != nil {
		return err
	}
	q, err := n.db.Dialect().Get(desc.Label, n.id)
	if err != nil {
		return err
	}
	res, err := run(ctx, n.db, q)
	if err != nil {
		return err
	}
	rec, ok := res.First()
	if !ok {
		return &NotFoundError{Kind: desc.Name, ID: n.id}
	}
	return n.hydrate(desc, accessorOf(n.self), rec)
}

// Serialize returns the identity, label and in-memory value of every
// declared property. Transformers are not applied.
func (n *Node) Serialize() (map[string]any, error) {
	if n.self == nil || n.reg == nil {
		return nil, ErrDetached
	}
	desc, err := n.reg.Lookup(n.key)
	if err != nil {
		return nil, err
	}
	acc := accessorOf(n.self)

	out := make(map[string]any, len(desc.Properties())+2)
	out["id"] = nil
	if n.hasID {
		out["id"] = n.id
	}
	out["label"] = desc.Label
	for _, p := range desc.Properties() {
		v, _ := acc.get(p)
		out[p.Key] = v
	}
	return out, nil
}

func (n *Node) hydrate(desc *metadata.EntityDescriptor, acc accessor, rec store.Record) error {
	node, err := rec.NodeOf(query.NodeColumn)
	if err != nil {
		return err
	}
	if err := hydrateProps(desc, acc, node.Props); err != nil {
		return err
	}
	n.SetID(node.ID)
	n.loaded = true
	return nil
}

// storageValues collects the present declared properties and applies each
// property's Transformer.To.
func storageValues(desc *metadata.EntityDescriptor, acc accessor) (map[string]any, error) {
	values := make(map[string]any)
	for _, p := range desc.Properties() {
		v, ok := acc.get(p)
		if !ok {
			continue
		}
		stored, err := toStorage(desc, p, v)
		if err != nil {
			return nil, err
		}
		values[p.Key] = stored
	}
	return values, nil
}

func toStorage(desc *metadata.EntityDescriptor, p *metadata.PropertyDescriptor, v any) (any, error) {
	if p.Transformer == nil || p.Transformer.To == nil {
		return v, nil
	}
	out, err := p.Transformer.To(v)
	if err != nil {
		return nil, &ValidationError{Kind: desc.Name, Key: p.Key, Reason: ReasonTransform, Err: err}
	}
	return out, nil
}

func normalizeProps(values map[string]any) (map[string]any, error) {
	props := make(map[string]any, len(values))
	for k, v := range values {
		nv, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		if nv != nil {
			props[k] = nv
		}
	}
	return props, nil
}

// hydrateProps writes every declared property the stored record carries,
// applying Transformer.From.
func hydrateProps(desc *metadata.EntityDescriptor, acc accessor, stored map[string]any) error {
	for _, p := range desc.Properties() {
		raw, ok := stored[p.Key]
		if !ok {
			continue
		}
		v := raw
		if p.Transformer != nil && p.Transformer.From != nil && raw != nil {
			var err error
			v, err = p.Transformer.From(raw)
			if err != nil {
				return fmt.Errorf("reading %s.%s: %w", desc.Name, p.Key, err)
			}
		}
		if err := acc.set(p, v); err != nil {
			return fmt.Errorf("reading %s.%s: %w", desc.Name, p.Key, err)
		}
	}
	return nil
}

// run executes q in its own session. The session is closed on every path.
func run(ctx context.Context, db store.Database, q query.Query) (*store.Result, error) {
	session, err := db.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	return session.Run(ctx, q.Text, q.Params)
}
