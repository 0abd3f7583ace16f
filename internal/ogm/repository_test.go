package ogm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphorm/internal/metadata"
	"graphorm/internal/query"
	"graphorm/internal/store"
)

func TestRepository_Find(t *testing.T) {
	ctx := context.Background()
	reg := personRegistry(t)
	db := newSpyDB(nodeResult(
		store.Node{ID: 1, Props: map[string]any{"name": "A", "age": int64(30)}},
		store.Node{ID: 2, Props: map[string]any{"name": "B", "age": int64(30), "email": "mailto:b@x.io"}},
	))
	repo := NewRepository[person](db, reg)

	found, err := repo.Find(ctx, FindOptions{
		Where:   map[string]any{"name": "x", "age": 30},
		OrderBy: []query.Order{{Field: "name", Desc: true}},
		Skip:    1,
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, found, 2)

	q := db.runs[0]
	assert.Equal(t, "MATCH (n:`Person`) WHERE n.age = $w_age AND n.name = $w_name RETURN n ORDER BY n.name DESC SKIP $skip LIMIT $limit", q.Text)
	assert.Equal(t, int64(30), q.Params["w_age"])
	assert.Equal(t, "x", q.Params["w_name"])

	id, ok := found[1].ID()
	require.True(t, ok)
	assert.Equal(t, int64(2), id)
	assert.True(t, found[1].Loaded())
	assert.Equal(t, "b@x.io", found[1].Email)
	assert.Equal(t, 30, *found[0].Age)

	// hydrated instances are attached and can be saved directly
	found[0].Name = "A2"
	db.results = []*store.Result{nodeResult(store.Node{ID: 1, Props: map[string]any{"name": "A2"}})}
	require.NoError(t, found[0].Save(ctx))
	assert.Contains(t, db.runs[1].Text, "SET n += $props")
}

func TestRepository_FilterValuesAreTransformed(t *testing.T) {
	reg := personRegistry(t)
	db := newSpyDB()
	repo := NewRepository[person](db, reg)

	_, err := repo.Find(context.Background(), FindOptions{Where: map[string]any{"email": "a@x.io"}})
	require.NoError(t, err)
	assert.Equal(t, "mailto:a@x.io", db.runs[0].Params["w_email"])
}

func TestRepository_FindOneAndFindByID(t *testing.T) {
	ctx := context.Background()
	reg := personRegistry(t)
	db := newSpyDB(
		nodeResult(store.Node{ID: 5, Props: map[string]any{"name": "A"}}),
		&store.Result{},
		&store.Result{},
	)
	repo := NewRepository[person](db, reg)

	p, err := repo.FindOne(ctx, map[string]any{"name": "A"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(1), db.runs[0].Params["limit"])

	p, err = repo.FindOne(ctx, map[string]any{"name": "nobody"})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = repo.FindByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, int64(99), db.runs[2].Params["id"])
}

func TestRepository_CountAndExists(t *testing.T) {
	ctx := context.Background()
	reg := personRegistry(t)
	db := newSpyDB(countResult(2), countResult(0), &store.Result{})
	repo := NewRepository[person](db, reg)

	n, err := repo.Count(ctx, map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, db.runs[0].Text, "RETURN count(n) AS count")

	ok, err := repo.Exists(ctx, map[string]any{"name": "nonexistent"})
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepository_Create(t *testing.T) {
	reg := personRegistry(t)
	db := newSpyDB()
	repo := NewRepository[person](db, reg)

	p, err := repo.Create(map[string]any{"name": "Bob", "Age": int64(5), "tags": []any{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "Bob", p.Name)
	assert.Equal(t, 5, *p.Age)
	assert.Equal(t, []string{"x"}, p.Tags)
	assert.False(t, p.Persisted())
	assert.Empty(t, db.runs)

	// no validation before Save
	empty, err := repo.Create(map[string]any{"age": 500})
	require.NoError(t, err)
	assert.ErrorIs(t, empty.Save(context.Background()), ErrValidation)

	_, err = repo.Create(map[string]any{"shoe_size": 44})
	assert.Error(t, err)
}

func TestRepository_SaveAttachesDatabase(t *testing.T) {
	ctx := context.Background()
	reg := personRegistry(t)
	db := newSpyDB(nodeResult(store.Node{ID: 3, Props: map[string]any{"name": "C"}}))
	repo := NewRepository[person](db, reg)

	p := &person{Name: "C"}
	require.NoError(t, repo.Save(ctx, p))
	id, _ := p.ID()
	assert.Equal(t, int64(3), id)

	// an existing handle is kept
	other := newSpyDB(&store.Result{Summary: store.Summary{NodesDeleted: 1}})
	q := &person{Name: "D"}
	Attach(q, other, reg)
	q.SetID(8)
	ok, err := repo.Delete(ctx, q)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, other.runs, 1)
	assert.Len(t, db.runs, 1)
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	reg := metadata.NewRegistry()
	require.NoError(t, DeclareDocument(reg, "Item", ""))
	require.NoError(t, DeclareDocumentProperty(reg, "Item", PropertyOptions{Key: "sku", Kind: metadata.KindString, Required: true}))
	require.NoError(t, DeclareDocumentProperty(reg, "Item", PropertyOptions{Key: "qty", Kind: metadata.KindInt}))

	db := newSpyDB(nodeResult(store.Node{ID: 11, Props: map[string]any{"sku": "A-1", "qty": int64(3)}}))
	docs := NewDocuments(db, reg)
	assert.Equal(t, []string{"Item"}, docs.Kinds())

	d, err := docs.Create(ctx, "Item", map[string]any{"sku": "A-1", "qty": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.Get("qty"))
	assert.Equal(t, map[string]any{"sku": "A-1", "qty": int64(3)}, db.runs[0].Params["props"])

	_, err = docs.Create(ctx, "Item", map[string]any{"qty": 1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = docs.Find(ctx, "Nope", FindOptions{})
	assert.ErrorIs(t, err, metadata.ErrMissingMetadata)

	db.results = []*store.Result{nodeResult(store.Node{ID: 11, Props: map[string]any{"sku": "A-1"}})}
	got, err := docs.Get(ctx, "Item", 11)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(11), "label": "Item", "sku": "A-1", "qty": nil}, got)
}
