package ogm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphorm/internal/metadata"
	"graphorm/internal/ogm"
	"graphorm/internal/query"
	"graphorm/internal/store/sqlite"
)

type member struct {
	ogm.Node
	Name   string
	Age    int
	Active bool
	Team   *team
}

type team struct {
	ogm.Node
	Title   string
	Members []*member
}

func memoryStore(t *testing.T) (*sqlite.Client, *metadata.Registry) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.New(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(ctx) })

	reg := metadata.NewRegistry()
	require.NoError(t, ogm.DeclareEntity[member](reg, "Member", ogm.EntityOptions{}))
	require.NoError(t, ogm.DeclareProperty[member](reg, "Name", ogm.PropertyOptions{Key: "name", Kind: metadata.KindString, Required: true, Unique: true}))
	require.NoError(t, ogm.DeclareProperty[member](reg, "Age", ogm.PropertyOptions{Key: "age", Kind: metadata.KindInt, Indexed: true}))
	require.NoError(t, ogm.DeclareProperty[member](reg, "Active", ogm.PropertyOptions{Key: "active", Kind: metadata.KindBool}))
	require.NoError(t, ogm.DeclareRelationship[member](reg, "Team", "MEMBER_OF", metadata.TargetOf[team](), ogm.RelationshipOptions{Key: "team"}))
	require.NoError(t, ogm.DeclareEntity[team](reg, "Team", ogm.EntityOptions{}))
	require.NoError(t, ogm.DeclareProperty[team](reg, "Title", ogm.PropertyOptions{Key: "title", Kind: metadata.KindString}))
	require.NoError(t, ogm.DeclareRelationship[team](reg, "Members", "MEMBER_OF", metadata.TargetOf[member](), ogm.RelationshipOptions{Key: "members", Direction: metadata.In, Multiple: true}))

	require.NoError(t, db.EnsureSchema(ctx, reg))
	return db, reg
}

func TestScenario_CreateAndFetch(t *testing.T) {
	ctx := context.Background()
	db, reg := memoryStore(t)
	members := ogm.NewRepository[member](db, reg)

	m, err := members.Create(map[string]any{"name": "Alice", "Age": 30})
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx))

	id, ok := m.ID()
	require.True(t, ok)
	assert.True(t, m.Loaded())

	got, err := members.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, 30, got.Age)

	missing, err := members.FindByID(ctx, id+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestScenario_MissingRequiredWritesNothing(t *testing.T) {
	ctx := context.Background()
	db, reg := memoryStore(t)
	members := ogm.NewRepository[member](db, reg)

	m, err := members.Create(map[string]any{"age": 30})
	require.NoError(t, err)

	err = m.Save(ctx)
	var verr *ogm.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Key)
	assert.False(t, m.Persisted())

	n, err := members.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestScenario_UpdateAndReload(t *testing.T) {
	ctx := context.Background()
	db, reg := memoryStore(t)
	members := ogm.NewRepository[member](db, reg)

	m := &member{Name: "Bob", Age: 41}
	require.NoError(t, members.Save(ctx, m))
	id, _ := m.ID()

	m.Age = 42
	require.NoError(t, m.Save(ctx))
	after, _ := m.ID()
	assert.Equal(t, id, after, "update keeps identity")

	other, err := members.FindByID(ctx, id)
	require.NoError(t, err)
	other.Age = 0
	require.NoError(t, other.Reload(ctx))
	assert.Equal(t, 42, other.Age)

	n, err := members.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestScenario_FindWithFilters(t *testing.T) {
	ctx := context.Background()
	db, reg := memoryStore(t)
	members := ogm.NewRepository[member](db, reg)

	for _, m := range []*member{
		{Name: "A", Age: 25, Active: true},
		{Name: "B", Age: 30},
		{Name: "C", Age: 30, Active: true},
	} {
		require.NoError(t, members.Save(ctx, m))
	}

	thirty, err := members.Find(ctx, ogm.FindOptions{
		Where:   map[string]any{"age": 30},
		OrderBy: []query.Order{{Field: "name"}},
	})
	require.NoError(t, err)
	require.Len(t, thirty, 2)
	assert.Equal(t, "B", thirty[0].Name)
	assert.Equal(t, "C", thirty[1].Name)

	active, err := members.FindOne(ctx, map[string]any{"active": true, "age": 30})
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "C", active.Name)

	page, err := members.Find(ctx, ogm.FindOptions{
		OrderBy: []query.Order{{Field: "age", Desc: true}, {Field: "name"}},
		Skip:    1,
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "C", page[0].Name)

	ok, err := members.Exists(ctx, map[string]any{"name": "A"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = members.Exists(ctx, map[string]any{"name": "Z"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScenario_UniqueNameEnforcedByStore(t *testing.T) {
	ctx := context.Background()
	db, reg := memoryStore(t)
	members := ogm.NewRepository[member](db, reg)

	require.NoError(t, members.Save(ctx, &member{Name: "Dup"}))
	assert.Error(t, members.Save(ctx, &member{Name: "Dup"}))
}

func TestScenario_RelateAndDelete(t *testing.T) {
	ctx := context.Background()
	db, reg := memoryStore(t)
	members := ogm.NewRepository[member](db, reg)
	teams := ogm.NewRepository[team](db, reg)

	m := &member{Name: "Eve"}
	tm := &team{Title: "Core"}
	require.NoError(t, members.Save(ctx, m))
	require.NoError(t, teams.Save(ctx, tm))

	require.NoError(t, ogm.Relate(ctx, m, "team", tm))
	require.NoError(t, ogm.Relate(ctx, tm, "members", m), "reverse declaration writes the same edge")

	deleted, err := members.Delete(ctx, m)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, m.Persisted())

	deleted, err = tm.Delete(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)

	n, err := teams.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestScenario_RelateToDeletedEndpoint(t *testing.T) {
	ctx := context.Background()
	db, reg := memoryStore(t)
	members := ogm.NewRepository[member](db, reg)
	teams := ogm.NewRepository[team](db, reg)

	m := &member{Name: "Finn"}
	tm := &team{Title: "Ops"}
	require.NoError(t, members.Save(ctx, m))
	require.NoError(t, teams.Save(ctx, tm))

	id, ok := tm.ID()
	require.True(t, ok)
	stale, err := teams.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stale)

	deleted, err := tm.Delete(ctx)
	require.NoError(t, err)
	require.True(t, deleted)

	err = ogm.Relate(ctx, m, "team", stale)
	require.ErrorIs(t, err, ogm.ErrNotFound)
	var nf *ogm.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "team", nf.Kind)
	assert.Equal(t, id, nf.ID)

	err = ogm.Relate(ctx, stale, "members", m)
	assert.ErrorIs(t, err, ogm.ErrNotFound, "in direction checks the same endpoint")
}

func TestScenario_Documents(t *testing.T) {
	ctx := context.Background()
	db, reg := memoryStore(t)
	require.NoError(t, ogm.DeclareDocument(reg, "book", "Book"))
	require.NoError(t, ogm.DeclareDocumentProperty(reg, "book", ogm.PropertyOptions{Key: "title", Kind: metadata.KindString, Required: true}))

	docs := ogm.NewDocuments(db, reg)
	d, err := docs.Create(ctx, "book", map[string]any{"title": "Dune"})
	require.NoError(t, err)
	id, ok := d.ID()
	require.True(t, ok)

	got, err := docs.Get(ctx, "book", id)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got["title"])
	assert.Equal(t, "Book", got["label"])

	n, err := docs.Count(ctx, "book", map[string]any{"title": "Dune"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
