package ogm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphorm/internal/metadata"
)

type account struct {
	Node
	Handle  string
	Created time.Time
	secret  string
}

type notAnEntity struct {
	Name string
}

type boxed[T any] struct {
	Node
	Value T
}

func TestDeclareEntity_LabelPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		label string
		opts  EntityOptions
		want  string
	}{
		{"explicit wins", "User", EntityOptions{Label: "Member"}, "User"},
		{"options label", "", EntityOptions{Label: "Member"}, "Member"},
		{"type name", "", EntityOptions{}, "account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := metadata.NewRegistry()
			require.NoError(t, DeclareEntity[account](reg, tt.label, tt.opts))
			d, err := reg.Lookup(metadata.KeyFor[account]())
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Label)
		})
	}
}

func TestDeclareEntity_KeepsEarlierDeclarations(t *testing.T) {
	reg := metadata.NewRegistry()
	require.NoError(t, DeclareProperty[account](reg, "Handle", PropertyOptions{Kind: metadata.KindString}))
	require.NoError(t, DeclareRelationship[account](reg, "Handle", "OWNS", metadata.TargetOf[account](), RelationshipOptions{Key: "owns", Multiple: true}))
	require.NoError(t, DeclareEntity[account](reg, "Account", EntityOptions{}))

	d, err := reg.Lookup(metadata.KeyFor[account]())
	require.NoError(t, err)
	assert.Equal(t, "Account", d.Label)
	assert.Equal(t, []string{"Handle"}, d.PropertyKeys())
	assert.Equal(t, []string{"owns"}, d.RelationshipKeys())

	rel, _ := d.Relationship("owns")
	assert.Equal(t, metadata.Out, rel.Direction)
	assert.True(t, rel.Multiple)
	assert.False(t, rel.Required)
}

func TestDeclareProperty_Defaults(t *testing.T) {
	reg := metadata.NewRegistry()
	require.NoError(t, DeclareProperty[account](reg, "Created", PropertyOptions{Kind: metadata.KindTime}))

	d, _ := reg.Descriptor(metadata.KeyFor[account]())
	p, ok := d.Property("Created")
	require.True(t, ok)
	assert.Equal(t, "Created", p.Field)
	assert.Equal(t, metadata.KindTime, p.Kind)
	assert.False(t, p.Required)
	assert.False(t, p.Unique)
	assert.False(t, p.Indexed)
}

func TestDeclare_Rejections(t *testing.T) {
	reg := metadata.NewRegistry()

	err := DeclareProperty[account](reg, "secret", PropertyOptions{Kind: metadata.KindString})
	assert.ErrorIs(t, err, metadata.ErrUnsupportedKey)

	err = DeclareProperty[account](reg, "Missing", PropertyOptions{Kind: metadata.KindString})
	assert.ErrorIs(t, err, metadata.ErrUnsupportedKey)

	err = DeclareProperty[account](reg, "Node", PropertyOptions{Kind: metadata.KindString})
	assert.ErrorIs(t, err, metadata.ErrUnsupportedKey)

	err = DeclareProperty[account](reg, "Handle", PropertyOptions{Key: "bad key", Kind: metadata.KindString})
	assert.ErrorIs(t, err, metadata.ErrUnsupportedKey)

	err = DeclareRelationship[account](reg, "secret", "OWNS", metadata.TargetOf[account](), RelationshipOptions{})
	assert.ErrorIs(t, err, metadata.ErrUnsupportedKey)

	assert.Error(t, DeclareProperty[account](reg, "Handle", PropertyOptions{}), "kind is mandatory")
	assert.Error(t, DeclareProperty[account](reg, "Handle", PropertyOptions{Kind: "decimal"}))
	assert.Error(t, DeclareRelationship[account](reg, "Handle", "bad type", metadata.TargetOf[account](), RelationshipOptions{}))
	assert.Error(t, DeclareRelationship[account](reg, "Handle", "OWNS", nil, RelationshipOptions{}))
	assert.Error(t, DeclareRelationship[account](reg, "Handle", "OWNS", metadata.TargetOf[account](), RelationshipOptions{Direction: "up"}))
	assert.Error(t, DeclareEntity[notAnEntity](reg, "", EntityOptions{}))
	assert.ErrorContains(t, DeclareEntity[boxed[string]](reg, "Boxed", EntityOptions{}), "generic")
	assert.ErrorContains(t, DeclareProperty[boxed[int]](reg, "Value", PropertyOptions{Kind: metadata.KindInt}), "generic")
	assert.ErrorContains(t, DeclareEntity[struct{ Node }](reg, "Anon", EntityOptions{}), "named")
	assert.Error(t, DeclareEntity[account](reg, "has space", EntityOptions{}))

	assert.Empty(t, reg.PropertyKeys(metadata.KeyFor[account]()))
}

func TestDeclareDocument(t *testing.T) {
	reg := metadata.NewRegistry()
	require.NoError(t, DeclareDocument(reg, "Order", "PurchaseOrder"))
	require.NoError(t, DeclareDocumentProperty(reg, "Order", PropertyOptions{Key: "total", Kind: metadata.KindFloat}))
	require.NoError(t, DeclareDocumentRelationship(reg, "Order", "buyer", "PLACED_BY", metadata.TargetDocument("Customer"), RelationshipOptions{Direction: metadata.In}))

	d, err := reg.Lookup(metadata.DocumentKey("Order"))
	require.NoError(t, err)
	assert.Equal(t, "PurchaseOrder", d.Label)
	assert.Equal(t, []string{"total"}, d.PropertyKeys())

	assert.ErrorIs(t, DeclareDocumentProperty(reg, "Order", PropertyOptions{Kind: metadata.KindInt}), metadata.ErrUnsupportedKey)
	assert.Error(t, DeclareDocument(reg, "bad kind", ""))
}

func TestDeclarationsOnSeparateFieldsAreOrderIndependent(t *testing.T) {
	a, b := metadata.NewRegistry(), metadata.NewRegistry()

	require.NoError(t, DeclareProperty[account](a, "Handle", PropertyOptions{Kind: metadata.KindString, Required: true}))
	require.NoError(t, DeclareProperty[account](a, "Created", PropertyOptions{Kind: metadata.KindTime}))

	require.NoError(t, DeclareProperty[account](b, "Created", PropertyOptions{Kind: metadata.KindTime}))
	require.NoError(t, DeclareProperty[account](b, "Handle", PropertyOptions{Kind: metadata.KindString, Required: true}))

	da, _ := a.Descriptor(metadata.KeyFor[account]())
	db, _ := b.Descriptor(metadata.KeyFor[account]())
	for _, key := range []string{"Handle", "Created"} {
		pa, _ := da.Property(key)
		pb, _ := db.Property(key)
		assert.Equal(t, pa.Kind, pb.Kind)
		assert.Equal(t, pa.Required, pb.Required)
	}
}

func TestTimeFieldRoundTrip(t *testing.T) {
	reg := metadata.NewRegistry()
	require.NoError(t, DeclareEntity[account](reg, "Account", EntityOptions{}))
	require.NoError(t, DeclareProperty[account](reg, "Handle", PropertyOptions{Key: "handle", Kind: metadata.KindString}))
	require.NoError(t, DeclareProperty[account](reg, "Created", PropertyOptions{Key: "created", Kind: metadata.KindTime}))

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	db := newSpyDB(nodeResult(storeNode(1, map[string]any{"handle": "h", "created": created.Format(time.RFC3339Nano)})))

	a := &account{Handle: "h", Created: created}
	Attach(a, db, reg)
	require.NoError(t, a.Save(context.Background()))
	assert.True(t, a.Created.Equal(created))
	assert.Equal(t, created, db.runs[0].Params["props"].(map[string]any)["created"])
}
