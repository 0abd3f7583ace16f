package ogm

import (
	"fmt"
	"reflect"
	"strings"

	"graphorm/internal/metadata"
	"graphorm/internal/query"
)

type EntityOptions struct {
	Label string
}

type PropertyOptions struct {
	// Key is the stored property name. Defaults to the field name.
	Key string
	// Kind is mandatory.
	Kind        metadata.Kind
	Required    bool
	Unique      bool
	Indexed     bool
	Validator   metadata.Validator
	Transformer *metadata.Transformer
}

type RelationshipOptions struct {
	Key       string
	Direction metadata.Direction
	Multiple  bool
	Required  bool
}

var entityInterface = reflect.TypeFor[Entity]()

// DeclareEntity registers T as a mapped kind. The label is the explicit
// label, else opts.Label, else the type name. Properties and relationships
// declared earlier are kept.
func DeclareEntity[T any](reg *metadata.Registry, label string, opts EntityOptions) error {
	t, err := entityType[T]()
	if err != nil {
		return err
	}
	key := metadata.KeyOf(t)
	if label == "" {
		label = opts.Label
	}
	if label == "" {
		label = key.Name()
	}
	if !query.ValidIdentifier(label) {
		return fmt.Errorf("declaring %s: invalid label %q", key.Name(), label)
	}
	reg.BindType(key, t)
	reg.SetLabel(key, label)
	return nil
}

// DeclareProperty maps the exported field of T to a stored property.
func DeclareProperty[T any](reg *metadata.Registry, field string, opts PropertyOptions) error {
	t, err := entityType[T]()
	if err != nil {
		return err
	}
	key := metadata.KeyOf(t)
	if err := checkField(t, field); err != nil {
		return err
	}
	p, err := propertyDescriptor(key.Name(), field, opts)
	if err != nil {
		return err
	}
	reg.BindType(key, t)
	reg.AddProperty(key, p)
	return nil
}

// DeclareRelationship maps the exported field of T to an edge of type
// relType pointing at the kind target resolves to.
func DeclareRelationship[T any](reg *metadata.Registry, field, relType string, target metadata.Resolver, opts RelationshipOptions) error {
	t, err := entityType[T]()
	if err != nil {
		return err
	}
	key := metadata.KeyOf(t)
	if err := checkField(t, field); err != nil {
		return err
	}
	r, err := relationshipDescriptor(key.Name(), field, relType, target, opts)
	if err != nil {
		return err
	}
	reg.BindType(key, t)
	reg.AddRelationship(key, r)
	return nil
}

// DeclareDocument registers a kind that has no Go struct. Its instances are
// Documents.
func DeclareDocument(reg *metadata.Registry, kind, label string) error {
	if !query.ValidIdentifier(kind) {
		return fmt.Errorf("invalid document kind %q", kind)
	}
	if label == "" {
		label = kind
	}
	if !query.ValidIdentifier(label) {
		return fmt.Errorf("declaring %s: invalid label %q", kind, label)
	}
	reg.SetLabel(metadata.DocumentKey(kind), label)
	return nil
}

func DeclareDocumentProperty(reg *metadata.Registry, kind string, opts PropertyOptions) error {
	if opts.Key == "" {
		return &metadata.UnsupportedKeyError{Kind: kind, Field: opts.Key, Reason: "document properties need a key"}
	}
	p, err := propertyDescriptor(kind, "", opts)
	if err != nil {
		return err
	}
	reg.AddProperty(metadata.DocumentKey(kind), p)
	return nil
}

func DeclareDocumentRelationship(reg *metadata.Registry, kind, key, relType string, target metadata.Resolver, opts RelationshipOptions) error {
	opts.Key = key
	if key == "" {
		return &metadata.UnsupportedKeyError{Kind: kind, Field: key, Reason: "document relationships need a key"}
	}
	r, err := relationshipDescriptor(kind, "", relType, target, opts)
	if err != nil {
		return err
	}
	reg.AddRelationship(metadata.DocumentKey(kind), r)
	return nil
}

func propertyDescriptor(kind, field string, opts PropertyOptions) (metadata.PropertyDescriptor, error) {
	key := opts.Key
	if key == "" {
		key = field
	}
	if !query.ValidIdentifier(key) {
		return metadata.PropertyDescriptor{}, &metadata.UnsupportedKeyError{Kind: kind, Field: key, Reason: "key is not a plain identifier"}
	}
	if opts.Kind == "" {
		return metadata.PropertyDescriptor{}, fmt.Errorf("declaring %s.%s: kind is required", kind, key)
	}
	k, err := metadata.ParseKind(string(opts.Kind))
	if err != nil {
		return metadata.PropertyDescriptor{}, fmt.Errorf("declaring %s.%s: %w", kind, key, err)
	}
	return metadata.PropertyDescriptor{
		Key:         key,
		Field:       field,
		Kind:        k,
		Required:    opts.Required,
		Unique:      opts.Unique,
		Indexed:     opts.Indexed,
		Validator:   opts.Validator,
		Transformer: opts.Transformer,
	}, nil
}

func relationshipDescriptor(kind, field, relType string, target metadata.Resolver, opts RelationshipOptions) (metadata.RelationshipDescriptor, error) {
	key := opts.Key
	if key == "" {
		key = field
	}
	if !query.ValidIdentifier(key) {
		return metadata.RelationshipDescriptor{}, &metadata.UnsupportedKeyError{Kind: kind, Field: key, Reason: "key is not a plain identifier"}
	}
	if !query.ValidIdentifier(relType) {
		return metadata.RelationshipDescriptor{}, fmt.Errorf("declaring %s.%s: invalid relationship type %q", kind, key, relType)
	}
	if target == nil {
		return metadata.RelationshipDescriptor{}, fmt.Errorf("declaring %s.%s: target is required", kind, key)
	}
	dir, err := metadata.ParseDirection(string(opts.Direction))
	if err != nil {
		return metadata.RelationshipDescriptor{}, fmt.Errorf("declaring %s.%s: %w", kind, key, err)
	}
	return metadata.RelationshipDescriptor{
		Key:          key,
		Field:        field,
		RelationType: relType,
		Target:       target,
		Direction:    dir,
		Multiple:     opts.Multiple,
		Required:     opts.Required,
	}, nil
}

// entityType returns T when *T embeds Node.
func entityType[T any]() (reflect.Type, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot map %s: not a struct type", t)
	}
	if t.Name() == "" {
		return nil, fmt.Errorf("cannot map %s: kinds must be named types", t)
	}
	if strings.Contains(t.Name(), "[") {
		return nil, fmt.Errorf("cannot map %s: generic types are not supported as kinds", t)
	}
	if !reflect.PointerTo(t).Implements(entityInterface) {
		return nil, fmt.Errorf("cannot map %s: it does not embed ogm.Node", t)
	}
	return t, nil
}

func checkField(t reflect.Type, field string) error {
	sf, ok := t.FieldByName(field)
	switch {
	case field == "":
		return &metadata.UnsupportedKeyError{Kind: t.Name(), Field: field, Reason: "empty field name"}
	case !ok:
		return &metadata.UnsupportedKeyError{Kind: t.Name(), Field: field, Reason: "no such field"}
	case !sf.IsExported():
		return &metadata.UnsupportedKeyError{Kind: t.Name(), Field: field, Reason: "field is not exported"}
	case sf.Anonymous:
		return &metadata.UnsupportedKeyError{Kind: t.Name(), Field: field, Reason: "embedded fields cannot be mapped"}
	}
	return nil
}
