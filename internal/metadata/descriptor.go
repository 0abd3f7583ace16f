// Package metadata holds the declared shape of every mapped entity kind:
// its node label, persisted properties and relationship fields.
package metadata

import (
	"fmt"
	"reflect"
	"strings"
)

// Key identifies a declared entity kind. Struct-backed kinds use KeyOf,
// schema-declared documents use DocumentKey.
type Key string

const documentPrefix = "document."

// KeyOf returns the key for a struct type. Pointer types resolve to their
// element type so *Person and Person share one descriptor.
//
// Types declared inside a function are not distinguished by reflection, so
// two function-local types with the same name in one package share a key.
// Declare kinds at package level.
func KeyOf(t reflect.Type) Key {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return Key(t.Name())
	}
	return Key(t.PkgPath() + "." + t.Name())
}

// KeyFor is KeyOf for a static type.
func KeyFor[T any]() Key {
	return KeyOf(reflect.TypeFor[T]())
}

// DocumentKey returns the key of a kind declared without a Go struct.
func DocumentKey(kind string) Key {
	return Key(documentPrefix + kind)
}

// Name is the kind's own name, used as the default label.
func (k Key) Name() string {
	s := string(k)
	// Type arguments carry their own package paths.
	head := s
	if i := strings.Index(s, "["); i >= 0 {
		head = s[:i]
	}
	if i := strings.LastIndex(head, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

func (k Key) IsDocument() bool {
	return strings.HasPrefix(string(k), documentPrefix)
}

// Kind is the declared value type of a property. It is informational only.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
	KindList   Kind = "list"
	KindMap    Kind = "map"
	KindAny    Kind = "any"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindString, KindInt, KindFloat, KindBool, KindTime, KindList, KindMap, KindAny:
		return k, nil
	default:
		return "", fmt.Errorf("unknown property kind: %q", s)
	}
}

type Direction string

const (
	Out  Direction = "out"
	In   Direction = "in"
	Both Direction = "both"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Out, nil
	case Out, In, Both:
		return d, nil
	default:
		return "", fmt.Errorf("invalid direction: %s", s)
	}
}

// Validator reports whether a present domain value is acceptable.
type Validator func(value any) bool

// Transformer converts between the in-memory domain value and the value
// stored in the database. To runs on write, From on read.
type Transformer struct {
	To   func(value any) (any, error)
	From func(value any) (any, error)
}

type PropertyDescriptor struct {
	// Key is the stored property name.
	Key string
	// Field is the Go struct field backing the property. Empty for documents.
	Field       string
	Kind        Kind
	Required    bool
	Unique      bool
	Indexed     bool
	Validator   Validator
	Transformer *Transformer
}

// Resolver lazily names the target kind of a relationship so that kinds
// referencing each other can be declared in any order.
type Resolver func() Key

// TargetOf returns a Resolver for a struct-backed kind.
func TargetOf[T any]() Resolver {
	return func() Key { return KeyFor[T]() }
}

// TargetDocument returns a Resolver for a schema-declared kind.
func TargetDocument(kind string) Resolver {
	return func() Key { return DocumentKey(kind) }
}

type RelationshipDescriptor struct {
	Key          string
	Field        string
	RelationType string
	Target       Resolver
	Direction    Direction
	Multiple     bool
	Required     bool
}

// EntityDescriptor is the declared shape of one kind. It is owned by a
// Registry and mutated only through it.
type EntityDescriptor struct {
	Key   Key
	Name  string
	Label string
	// Type is the Go struct type; nil for document kinds.
	Type reflect.Type

	properties    []*PropertyDescriptor
	propIndex     map[string]int
	relationships []*RelationshipDescriptor
	relIndex      map[string]int
}

func newEntityDescriptor(key Key) *EntityDescriptor {
	return &EntityDescriptor{
		Key:       key,
		Name:      key.Name(),
		Label:     key.Name(),
		propIndex: make(map[string]int),
		relIndex:  make(map[string]int),
	}
}

// Properties returns the property descriptors in declaration order.
func (d *EntityDescriptor) Properties() []*PropertyDescriptor {
	return append([]*PropertyDescriptor(nil), d.properties...)
}

func (d *EntityDescriptor) Property(key string) (*PropertyDescriptor, bool) {
	i, ok := d.propIndex[key]
	if !ok {
		return nil, false
	}
	return d.properties[i], true
}

// PropertyByField finds a property by its Go field name.
func (d *EntityDescriptor) PropertyByField(field string) (*PropertyDescriptor, bool) {
	for _, p := range d.properties {
		if p.Field != "" && p.Field == field {
			return p, true
		}
	}
	return nil, false
}

func (d *EntityDescriptor) PropertyKeys() []string {
	keys := make([]string, len(d.properties))
	for i, p := range d.properties {
		keys[i] = p.Key
	}
	return keys
}

// Relationships returns the relationship descriptors in declaration order.
func (d *EntityDescriptor) Relationships() []*RelationshipDescriptor {
	return append([]*RelationshipDescriptor(nil), d.relationships...)
}

func (d *EntityDescriptor) Relationship(key string) (*RelationshipDescriptor, bool) {
	i, ok := d.relIndex[key]
	if !ok {
		return nil, false
	}
	return d.relationships[i], true
}

func (d *EntityDescriptor) RelationshipKeys() []string {
	keys := make([]string, len(d.relationships))
	for i, r := range d.relationships {
		keys[i] = r.Key
	}
	return keys
}

func (d *EntityDescriptor) putProperty(p *PropertyDescriptor) {
	if i, ok := d.propIndex[p.Key]; ok {
		d.properties[i] = p
		return
	}
	d.propIndex[p.Key] = len(d.properties)
	d.properties = append(d.properties, p)
}

func (d *EntityDescriptor) putRelationship(r *RelationshipDescriptor) {
	if i, ok := d.relIndex[r.Key]; ok {
		d.relationships[i] = r
		return
	}
	d.relIndex[r.Key] = len(d.relationships)
	d.relationships = append(d.relationships, r)
}
