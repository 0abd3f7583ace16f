//go:build integration

package graph

import (
	"context"
	"os"
	"testing"

	"graphorm/internal/metadata"
	"graphorm/internal/query"
	"graphorm/internal/store"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	uri := os.Getenv("GRAPHORM_TEST_NEO4J")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	client, err := NewClient(ctx, uri, "neo4j", "changeme", "neo4j")
	if err != nil {
		t.Fatalf("connecting to test neo4j: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(ctx) })

	reset := query.Query{Text: "MATCH (n) WHERE n:GraphormPerson OR n:GraphormCompany DETACH DELETE n"}
	run(t, client, reset, nil)
	return client
}

func run(t *testing.T, c *Client, q query.Query, err error) *store.Result {
	t.Helper()
	if err != nil {
		t.Fatalf("building query: %v", err)
	}
	ctx := context.Background()
	s, err := c.NewSession(ctx)
	if err != nil {
		t.Fatalf("opening session: %v", err)
	}
	defer s.Close(ctx)
	res, err := s.Run(ctx, q.Text, q.Params)
	if err != nil {
		t.Fatalf("running %q: %v", q.Text, err)
	}
	return res
}

func TestNewClient_BadCredentials(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, "bolt://localhost:7687", "neo4j", "wrong", "neo4j")
	if err == nil {
		_ = client.Close(ctx)
		t.Fatalf("expected error")
	}
}

func TestClient_NodeLifecycle(t *testing.T) {
	c := testClient(t)
	d := c.Dialect()

	q, err := d.Create("GraphormPerson", map[string]any{"name": "Ada", "age": int64(36)})
	res := run(t, c, q, err)
	created, err := res.Records[0].NodeOf(query.NodeColumn)
	if err != nil {
		t.Fatalf("reading created node: %v", err)
	}
	if res.Summary.NodesCreated != 1 {
		t.Fatalf("expected 1 node created, got %d", res.Summary.NodesCreated)
	}

	q, err = d.Update("GraphormPerson", created.ID, map[string]any{"age": int64(37)})
	res = run(t, c, q, err)
	updated, _ := res.Records[0].NodeOf(query.NodeColumn)
	if updated.Props["age"] != int64(37) || updated.Props["name"] != "Ada" {
		t.Fatalf("unexpected props after update: %v", updated.Props)
	}

	q, err = d.Count("GraphormPerson", map[string]any{"age": int64(37)})
	count, _ := run(t, c, q, err).Records[0].Int64Of(query.CountColumn)
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	q, err = d.Delete("GraphormPerson", created.ID)
	if got := run(t, c, q, err).Summary.NodesDeleted; got != 1 {
		t.Fatalf("expected 1 node deleted, got %d", got)
	}

	q, err = d.Get("GraphormPerson", created.ID)
	if got := run(t, c, q, err).Records; len(got) != 0 {
		t.Fatalf("expected no records after delete, got %d", len(got))
	}
}

func TestClient_RelateTwiceCreatesOneEdge(t *testing.T) {
	c := testClient(t)
	d := c.Dialect()

	q, err := d.Create("GraphormPerson", map[string]any{"name": "Ada"})
	ada, _ := run(t, c, q, err).Records[0].NodeOf(query.NodeColumn)
	q, err = d.Create("GraphormCompany", map[string]any{"name": "Acme"})
	acme, _ := run(t, c, q, err).Records[0].NodeOf(query.NodeColumn)

	q, err = d.Relate("WORKS_AT", "GraphormPerson", ada.ID, "GraphormCompany", acme.ID)
	if got := run(t, c, q, err).Summary.RelationshipsCreated; got != 1 {
		t.Fatalf("expected 1 relationship created, got %d", got)
	}
	q, err = d.Relate("WORKS_AT", "GraphormPerson", ada.ID, "GraphormCompany", acme.ID)
	if got := run(t, c, q, err).Summary.RelationshipsCreated; got != 0 {
		t.Fatalf("expected relate to be idempotent, got %d created", got)
	}
}

func TestClient_EnsureSchema(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)

	reg := metadata.NewRegistry()
	reg.SetLabel("main.person", "GraphormPerson")
	reg.AddProperty("main.person", metadata.PropertyDescriptor{Key: "email", Unique: true})

	if err := c.EnsureSchema(ctx, reg); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := c.EnsureSchema(ctx, reg); err != nil {
		t.Fatalf("ensure schema (idempotent): %v", err)
	}

	d := c.Dialect()
	q, err := d.Create("GraphormPerson", map[string]any{"email": "ada@example.com"})
	run(t, c, q, err)

	s, _ := c.NewSession(ctx)
	defer s.Close(ctx)
	if _, err := s.Run(ctx, q.Text, q.Params); err == nil {
		t.Fatalf("expected duplicate email to be rejected")
	}
}
