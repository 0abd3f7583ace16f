package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"graphorm/internal/metadata"
	"graphorm/internal/ogm"
	"graphorm/internal/query"
	"graphorm/internal/transform"
)

// Schema declares document kinds without Go structs.
type Schema struct {
	Version           int                `yaml:"version"`
	EntityTypes       []EntityType       `yaml:"entity_types"`
	RelationshipTypes []RelationshipType `yaml:"relationship_types"`

	entityIndex map[string]*EntityType
	relIndex    map[string]*RelationshipType
}

type EntityType struct {
	Name          string         `yaml:"name"`
	Label         string         `yaml:"label"`
	Properties    []Property     `yaml:"properties"`
	Relationships []Relationship `yaml:"relationships"`
}

type Property struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Values    []string `yaml:"values"`
	Pattern   string   `yaml:"pattern"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Transform string   `yaml:"transform"`
	Required  bool     `yaml:"required"`
	Unique    bool     `yaml:"unique"`
	Indexed   bool     `yaml:"indexed"`
}

type Relationship struct {
	Field     string `yaml:"field"`
	Type      string `yaml:"type"`
	Target    string `yaml:"target"`
	Direction string `yaml:"direction"`
	Multiple  bool   `yaml:"multiple"`
	Required  bool   `yaml:"required"`
}

type RelationshipType struct {
	Name      string `yaml:"name"`
	Inverse   string `yaml:"inverse"`
	Symmetric bool   `yaml:"symmetric"`
}

// Schema-only property types on top of the metadata kinds.
const (
	typeEnum = "enum"
	typeUUID = "uuid"
)

func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	if err := validateSchema(&schema); err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	schema.entityIndex = make(map[string]*EntityType)
	for i := range schema.EntityTypes {
		entity := &schema.EntityTypes[i]
		schema.entityIndex[strings.ToLower(entity.Name)] = entity
	}

	schema.relIndex = make(map[string]*RelationshipType)
	for i := range schema.RelationshipTypes {
		rel := &schema.RelationshipTypes[i]
		schema.relIndex[strings.ToLower(rel.Name)] = rel
	}

	return &schema, nil
}

func validateSchema(s *Schema) error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported version: %d", s.Version)
	}
	if len(s.EntityTypes) == 0 {
		return fmt.Errorf("at least one entity type is required")
	}

	entityNames := make(map[string]struct{})
	for i, entity := range s.EntityTypes {
		if strings.TrimSpace(entity.Name) == "" {
			return fmt.Errorf("entity type %d name is required", i)
		}
		if !query.ValidIdentifier(entity.Name) {
			return fmt.Errorf("entity type name %q is not an identifier", entity.Name)
		}
		if entity.Label != "" && !query.ValidIdentifier(entity.Label) {
			return fmt.Errorf("entity type %s label %q is not an identifier", entity.Name, entity.Label)
		}
		key := strings.ToLower(entity.Name)
		if _, exists := entityNames[key]; exists {
			return fmt.Errorf("duplicate entity type name: %s", entity.Name)
		}
		entityNames[key] = struct{}{}

		propNames := make(map[string]struct{})
		for _, prop := range entity.Properties {
			name := strings.ToLower(strings.TrimSpace(prop.Name))
			if name == "" {
				return fmt.Errorf("entity type %s has property with empty name", entity.Name)
			}
			if _, exists := propNames[name]; exists {
				return fmt.Errorf("entity type %s has duplicate property: %s", entity.Name, prop.Name)
			}
			propNames[name] = struct{}{}
			if err := validateProperty(prop); err != nil {
				return fmt.Errorf("entity type %s property %s: %w", entity.Name, prop.Name, err)
			}
		}
	}

	relNames := make(map[string]struct{})
	for i, rel := range s.RelationshipTypes {
		if strings.TrimSpace(rel.Name) == "" {
			return fmt.Errorf("relationship type %d name is required", i)
		}
		key := strings.ToLower(rel.Name)
		if _, exists := relNames[key]; exists {
			return fmt.Errorf("duplicate relationship type name: %s", rel.Name)
		}
		relNames[key] = struct{}{}
	}

	for _, entity := range s.EntityTypes {
		fields := make(map[string]struct{})
		for _, rel := range entity.Relationships {
			if strings.TrimSpace(rel.Field) == "" {
				return fmt.Errorf("entity type %s has relationship with empty field", entity.Name)
			}
			if _, exists := fields[rel.Field]; exists {
				return fmt.Errorf("entity type %s has duplicate relationship: %s", entity.Name, rel.Field)
			}
			fields[rel.Field] = struct{}{}
			if strings.TrimSpace(rel.Type) == "" {
				return fmt.Errorf("entity type %s relationship %s has no type", entity.Name, rel.Field)
			}
			if len(relNames) > 0 {
				if _, ok := relNames[strings.ToLower(rel.Type)]; !ok {
					return fmt.Errorf("entity type %s relationship %s references unknown relationship type: %s", entity.Name, rel.Field, rel.Type)
				}
			}
			if _, ok := entityNames[strings.ToLower(rel.Target)]; !ok {
				return fmt.Errorf("entity type %s relationship %s references unknown target: %s", entity.Name, rel.Field, rel.Target)
			}
			if _, err := metadata.ParseDirection(rel.Direction); err != nil {
				return fmt.Errorf("entity type %s relationship %s: %w", entity.Name, rel.Field, err)
			}
		}
	}

	return nil
}

func validateProperty(prop Property) error {
	if !query.ValidIdentifier(prop.Name) {
		return fmt.Errorf("name is not an identifier")
	}
	switch strings.ToLower(prop.Type) {
	case typeEnum:
		if len(prop.Values) == 0 {
			return fmt.Errorf("enum has no values")
		}
	case typeUUID:
	default:
		if _, err := metadata.ParseKind(prop.Type); err != nil {
			return err
		}
	}
	if prop.Pattern != "" {
		if _, err := regexp.Compile(prop.Pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}
	if prop.Min != nil && prop.Max != nil && *prop.Min > *prop.Max {
		return fmt.Errorf("min %v is greater than max %v", *prop.Min, *prop.Max)
	}
	if _, err := transform.ByName(prop.Transform); err != nil {
		return err
	}
	return nil
}

func (s *Schema) EntityTypeByName(name string) (*EntityType, bool) {
	if s == nil {
		return nil, false
	}
	entity, ok := s.entityIndex[strings.ToLower(name)]
	return entity, ok
}

func (s *Schema) RelationshipTypeByName(name string) (*RelationshipType, bool) {
	if s == nil {
		return nil, false
	}
	rel, ok := s.relIndex[strings.ToLower(name)]
	return rel, ok
}

func (s *Schema) IsValidEntityType(name string) bool {
	_, ok := s.EntityTypeByName(name)
	return ok
}

// NodeLabel is the explicit label of an entity type, else its name with
// the first letter upper-cased.
func (s *Schema) NodeLabel(entityType string) string {
	if e, ok := s.EntityTypeByName(entityType); ok && e.Label != "" {
		return e.Label
	}
	if entityType == "" {
		return ""
	}
	return strings.ToUpper(entityType[:1]) + entityType[1:]
}

// Declare registers every entity type in reg as a document kind named after
// the entity type.
func (s *Schema) Declare(reg *metadata.Registry) error {
	for _, entity := range s.EntityTypes {
		if err := ogm.DeclareDocument(reg, entity.Name, s.NodeLabel(entity.Name)); err != nil {
			return err
		}
		for _, prop := range entity.Properties {
			opts, err := prop.options()
			if err != nil {
				return fmt.Errorf("declaring %s.%s: %w", entity.Name, prop.Name, err)
			}
			if err := ogm.DeclareDocumentProperty(reg, entity.Name, opts); err != nil {
				return err
			}
		}
		for _, rel := range entity.Relationships {
			dir, _ := metadata.ParseDirection(rel.Direction)
			target := rel.Target
			if e, ok := s.EntityTypeByName(rel.Target); ok {
				target = e.Name
			}
			err := ogm.DeclareDocumentRelationship(reg, entity.Name, rel.Field, rel.Type,
				metadata.TargetDocument(target),
				ogm.RelationshipOptions{Direction: dir, Multiple: rel.Multiple, Required: rel.Required})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p Property) options() (ogm.PropertyOptions, error) {
	opts := ogm.PropertyOptions{
		Key:      p.Name,
		Required: p.Required,
		Unique:   p.Unique,
		Indexed:  p.Indexed,
	}

	var validators []metadata.Validator
	switch strings.ToLower(p.Type) {
	case typeEnum:
		opts.Kind = metadata.KindString
		validators = append(validators, metadata.OneOf(p.Values...))
	case typeUUID:
		opts.Kind = metadata.KindString
		opts.Transformer = transform.UUID()
	default:
		kind, err := metadata.ParseKind(p.Type)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}

	if p.Pattern != "" {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return opts, err
		}
		validators = append(validators, metadata.Pattern(re))
	}
	if p.Min != nil || p.Max != nil {
		validators = append(validators, metadata.Range(p.Min, p.Max))
	}
	switch len(validators) {
	case 0:
	case 1:
		opts.Validator = validators[0]
	default:
		opts.Validator = metadata.All(validators...)
	}

	if p.Transform != "" {
		tr, err := transform.ByName(p.Transform)
		if err != nil {
			return opts, err
		}
		opts.Transformer = tr
	}
	return opts, nil
}
