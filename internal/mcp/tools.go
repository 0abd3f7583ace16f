package mcp

import (
	"context"
	"fmt"
	"math"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"graphorm/internal/metadata"
	"graphorm/internal/ogm"
	"graphorm/internal/query"
)

type FindEntitiesInput struct {
	Kind    string         `json:"kind" jsonschema:"entity kind"`
	Where   map[string]any `json:"where,omitempty" jsonschema:"equality filters by property key"`
	OrderBy string         `json:"order_by,omitempty" jsonschema:"property key to sort by"`
	Desc    bool           `json:"desc,omitempty" jsonschema:"sort descending"`
	Skip    int            `json:"skip,omitempty" jsonschema:"number of results to skip"`
	Limit   int            `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type GetEntityInput struct {
	Kind string `json:"kind" jsonschema:"entity kind"`
	ID   int64  `json:"id" jsonschema:"entity identity"`
}

type CountEntitiesInput struct {
	Kind  string         `json:"kind" jsonschema:"entity kind"`
	Where map[string]any `json:"where,omitempty" jsonschema:"equality filters by property key"`
}

type GetSchemaInput struct{}

type FindEntitiesOutput struct {
	Entities []map[string]any `json:"entities"`
}

type EntityOutput struct {
	Entity map[string]any `json:"entity"`
}

type CountEntitiesOutput struct {
	Count int64 `json:"count"`
}

type SchemaOutput struct {
	Kinds []KindOutput `json:"kinds"`
}

type KindOutput struct {
	Name          string               `json:"name"`
	Label         string               `json:"label"`
	Properties    []PropertyOutput     `json:"properties"`
	Relationships []RelationshipOutput `json:"relationships"`
}

type PropertyOutput struct {
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	Required bool   `json:"required,omitempty"`
	Unique   bool   `json:"unique,omitempty"`
	Indexed  bool   `json:"indexed,omitempty"`
}

type RelationshipOutput struct {
	Key       string `json:"key"`
	Type      string `json:"type"`
	Target    string `json:"target"`
	Direction string `json:"direction"`
	Multiple  bool   `json:"multiple,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "find_entities",
		Description: "Find entities of a kind by property equality",
	}, s.handleFindEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity",
		Description: "Retrieve one entity by kind and identity",
	}, s.handleGetEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "count_entities",
		Description: "Count entities of a kind matching filters",
	}, s.handleCountEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_schema",
		Description: "Return the declared kinds, properties and relationships",
	}, s.handleGetSchema)
}

func (s *Server) handleFindEntities(ctx context.Context, req *sdk.CallToolRequest, input FindEntitiesInput) (*sdk.CallToolResult, FindEntitiesOutput, error) {
	desc, err := s.kind(input.Kind)
	if err != nil {
		return nil, FindEntitiesOutput{}, err
	}
	opts := ogm.FindOptions{
		Where: coerce(desc, input.Where),
		Skip:  input.Skip,
		Limit: input.Limit,
	}
	if input.OrderBy != "" {
		opts.OrderBy = []query.Order{{Field: input.OrderBy, Desc: input.Desc}}
	}
	entities, err := s.docs.Find(ctx, input.Kind, opts)
	if err != nil {
		return nil, FindEntitiesOutput{}, err
	}
	return nil, FindEntitiesOutput{Entities: entities}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEntityInput) (*sdk.CallToolResult, EntityOutput, error) {
	if _, err := s.kind(input.Kind); err != nil {
		return nil, EntityOutput{}, err
	}
	entity, err := s.docs.Get(ctx, input.Kind, input.ID)
	if err != nil {
		return nil, EntityOutput{}, err
	}
	if entity == nil {
		return nil, EntityOutput{}, &ogm.NotFoundError{Kind: input.Kind, ID: input.ID}
	}
	return nil, EntityOutput{Entity: entity}, nil
}

func (s *Server) handleCountEntities(ctx context.Context, req *sdk.CallToolRequest, input CountEntitiesInput) (*sdk.CallToolResult, CountEntitiesOutput, error) {
	desc, err := s.kind(input.Kind)
	if err != nil {
		return nil, CountEntitiesOutput{}, err
	}
	n, err := s.docs.Count(ctx, input.Kind, coerce(desc, input.Where))
	if err != nil {
		return nil, CountEntitiesOutput{}, err
	}
	return nil, CountEntitiesOutput{Count: n}, nil
}

func (s *Server) handleGetSchema(ctx context.Context, req *sdk.CallToolRequest, input GetSchemaInput) (*sdk.CallToolResult, SchemaOutput, error) {
	return nil, schemaOutputFromRegistry(s.reg), nil
}

func (s *Server) kind(name string) (*metadata.EntityDescriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("kind is required")
	}
	return s.reg.Lookup(metadata.DocumentKey(name))
}

// coerce turns integral JSON numbers back into integers for int properties.
func coerce(desc *metadata.EntityDescriptor, where map[string]any) map[string]any {
	if len(where) == 0 {
		return nil
	}
	out := make(map[string]any, len(where))
	for k, v := range where {
		if p, ok := desc.Property(k); ok && p.Kind == metadata.KindInt {
			if f, ok := v.(float64); ok && f == math.Trunc(f) {
				v = int64(f)
			}
		}
		out[k] = v
	}
	return out
}

func schemaOutputFromRegistry(reg *metadata.Registry) SchemaOutput {
	out := SchemaOutput{Kinds: make([]KindOutput, 0)}
	if reg == nil {
		return out
	}

	for _, desc := range reg.Entities() {
		kind := KindOutput{
			Name:          desc.Name,
			Label:         desc.Label,
			Properties:    make([]PropertyOutput, 0, len(desc.Properties())),
			Relationships: make([]RelationshipOutput, 0, len(desc.Relationships())),
		}
		for _, p := range desc.Properties() {
			kind.Properties = append(kind.Properties, PropertyOutput{
				Key:      p.Key,
				Kind:     string(p.Kind),
				Required: p.Required,
				Unique:   p.Unique,
				Indexed:  p.Indexed,
			})
		}
		for _, r := range desc.Relationships() {
			target := ""
			if t, err := reg.ResolveTarget(r); err == nil {
				target = t.Name
			}
			kind.Relationships = append(kind.Relationships, RelationshipOutput{
				Key:       r.Key,
				Type:      r.RelationType,
				Target:    target,
				Direction: string(r.Direction),
				Multiple:  r.Multiple,
			})
		}
		out.Kinds = append(out.Kinds, kind)
	}
	return out
}
