package config

import (
	"os"
	"path/filepath"
	"testing"

	"graphorm/internal/metadata"
)

func TestLoadSchema(t *testing.T) {
	t.Run("valid schema loads", func(t *testing.T) {
		schema, err := LoadSchema(filepath.Join("testdata", "valid_schema.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !schema.IsValidEntityType("person") {
			t.Fatalf("expected person entity type to be valid")
		}
	})

	cases := map[string]string{
		"missing entity types":       "version: 1\nentity_types: []\n",
		"duplicate entity types":     "version: 1\nentity_types:\n  - name: person\n  - name: Person\n",
		"entity name not identifier": "version: 1\nentity_types:\n  - name: my-person\n",
		"enum without values":        "version: 1\nentity_types:\n  - name: person\n    properties:\n      - { name: status, type: enum }\n",
		"unknown property type":      "version: 1\nentity_types:\n  - name: person\n    properties:\n      - { name: status, type: money }\n",
		"bad pattern":                "version: 1\nentity_types:\n  - name: person\n    properties:\n      - { name: email, type: string, pattern: \"[\" }\n",
		"min above max":              "version: 1\nentity_types:\n  - name: person\n    properties:\n      - { name: age, type: int, min: 10, max: 1 }\n",
		"unknown transform":          "version: 1\nentity_types:\n  - name: person\n    properties:\n      - { name: age, type: int, transform: rot13 }\n",
		"unknown relationship type":  "version: 1\nentity_types:\n  - name: person\n    relationships:\n      - { field: boss, type: MANAGES, target: person }\nrelationship_types:\n  - name: RELATED_TO\n",
		"unknown target":             "version: 1\nentity_types:\n  - name: person\n    relationships:\n      - { field: boss, type: MANAGES, target: robot }\n",
		"bad direction":              "version: 1\nentity_types:\n  - name: person\n    relationships:\n      - { field: boss, type: MANAGES, target: person, direction: sideways }\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeTempSchema(t, contents)
			if _, err := LoadSchema(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSchemaHelpers(t *testing.T) {
	schema, err := LoadSchema(filepath.Join("testdata", "valid_schema.yaml"))
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}

	t.Run("EntityTypeByName case-insensitive", func(t *testing.T) {
		if _, ok := schema.EntityTypeByName("PERSON"); !ok {
			t.Fatalf("expected to find person entity type")
		}
	})

	t.Run("NodeLabel", func(t *testing.T) {
		if label := schema.NodeLabel("person"); label != "Person" {
			t.Fatalf("expected Person, got %q", label)
		}
		if label := schema.NodeLabel("company"); label != "Organisation" {
			t.Fatalf("expected explicit label, got %q", label)
		}
	})
}

func TestSchemaDeclare(t *testing.T) {
	schema, err := LoadSchema(filepath.Join("testdata", "valid_schema.yaml"))
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}
	reg := metadata.NewRegistry()
	if err := schema.Declare(reg); err != nil {
		t.Fatalf("declaring schema: %v", err)
	}

	person, err := reg.Lookup(metadata.DocumentKey("person"))
	if err != nil {
		t.Fatalf("lookup person: %v", err)
	}
	if person.Label != "Person" {
		t.Fatalf("expected Person label, got %q", person.Label)
	}

	name, ok := person.Property("name")
	if !ok || !name.Required || !name.Unique {
		t.Fatalf("expected required unique name, got %+v", name)
	}

	age, _ := person.Property("age")
	if age.Kind != metadata.KindInt || !age.Indexed {
		t.Fatalf("unexpected age descriptor %+v", age)
	}
	if age.Validator(int64(200)) || !age.Validator(int64(30)) {
		t.Fatalf("age range not applied")
	}

	role, _ := person.Property("role")
	if role.Validator("janitor") || !role.Validator("manager") {
		t.Fatalf("enum values not applied")
	}

	ref, _ := person.Property("ref")
	if ref.Transformer == nil {
		t.Fatalf("uuid type needs a transformer")
	}

	company, err := reg.Lookup(metadata.DocumentKey("company"))
	if err != nil {
		t.Fatalf("lookup company: %v", err)
	}
	staff, ok := company.Relationship("staff")
	if !ok || staff.Direction != metadata.In || !staff.Multiple {
		t.Fatalf("unexpected staff relationship %+v", staff)
	}
	target, err := reg.ResolveTarget(staff)
	if err != nil || target.Key != person.Key {
		t.Fatalf("staff should target person, got %v, %v", target, err)
	}
}

func writeTempSchema(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp schema: %v", err)
	}
	return path
}
