package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/charsheet/pkg/types"
)

func fullPayload(c *types.Character) types.Payload {
	return types.Payload{Kind: types.PayloadFull, Fields: c.Fields()}
}

func sampleCharacter(t *testing.T, name string) *types.Character {
	t.Helper()
	c := types.NewCharacter(name)
	c.Text["chronicle"] = "Night Shift"
	require.NoError(t, c.SetAttribute("stamina", 3))
	require.NoError(t, c.AddTouchstone(types.Touchstone{Name: "Mara"}))
	require.NoError(t, c.AddEdge("arsenal"))
	_, err := c.Ledger.Add(4, "session")
	require.NoError(t, err)
	return c
}

func TestCreateAndGet(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()
	owner := types.Owner("u-1")

	id, err := b.Create(ctx, owner, fullPayload(sampleCharacter(t, "Ada")))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := b.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "u-1", got.OwnerID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, 3, got.Attributes["stamina"])
	assert.Equal(t, []types.Touchstone{{Name: "Mara"}}, got.Touchstones)
	assert.Equal(t, 4, got.Ledger.Available())
	assert.Equal(t, 1, got.Ledger.Len())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	c := types.NewCharacter("")
	fields := c.Fields()
	fields["strength"] = 9

	_, err := b.Create(ctx, types.Owner("u-1"), types.Payload{Kind: types.PayloadFull, Fields: fields})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("strength"))

	_, err = b.Create(ctx, types.Owner("u-1"), types.Payload{Kind: types.PayloadDelta, Fields: map[string]any{"name": "Ada"}})
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("payload"))

	list, err := b.List(ctx, types.Storyteller("st"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateEnforcesOwnerLimit(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()
	owner := types.Owner("u-1")

	for i := 0; i < types.DefaultCharacterLimit; i++ {
		_, err := b.Create(ctx, owner, fullPayload(types.NewCharacter("Hunter")))
		require.NoError(t, err)
	}
	_, err := b.Create(ctx, owner, fullPayload(types.NewCharacter("One too many")))
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Field("character_count"), "limit of 3")

	_, err = b.Create(ctx, types.Owner("u-2"), fullPayload(types.NewCharacter("Other owner")))
	assert.NoError(t, err)
	_, err = b.Create(ctx, types.Storyteller("u-1"), fullPayload(types.NewCharacter("NPC")))
	assert.NoError(t, err)
}

func TestUpdateDeltaReplacesCollections(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()
	owner := types.Owner("u-1")

	id, err := b.Create(ctx, owner, fullPayload(sampleCharacter(t, "Ada")))
	require.NoError(t, err)

	err = b.Update(ctx, owner, id, types.Payload{Kind: types.PayloadDelta, Fields: map[string]any{
		"cell":        "Ravens",
		"touchstones": []types.Touchstone{{Name: "Jun"}, {Name: "Old church"}},
	}})
	require.NoError(t, err)

	got, err := b.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, "Ravens", got.Text["cell"])
	assert.Equal(t, "Night Shift", got.Text["chronicle"])
	assert.Equal(t, []types.Touchstone{{Name: "Jun"}, {Name: "Old church"}}, got.Touchstones)
	assert.Equal(t, []types.EdgeSelection{{EdgeID: "arsenal"}}, got.Edges)
}

func TestUpdateLedger(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()
	owner := types.Owner("u-1")

	c := sampleCharacter(t, "Ada")
	id, err := b.Create(ctx, owner, fullPayload(c))
	require.NoError(t, err)
	c.ID = id

	_, err = c.Ledger.Spend(3, "new edge")
	require.NoError(t, err)
	err = b.Update(ctx, owner, id, types.Payload{Kind: types.PayloadDelta, Fields: c.FieldsFor(
		[]string{"exp_total", "exp_spent", "exp_available", "xp_log"},
	)})
	require.NoError(t, err)

	got, err := b.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Ledger.Available())
	assert.Equal(t, c.Ledger.Entries(), got.Ledger.Entries())
}

func TestUpdateRejectsInconsistentRecord(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()
	owner := types.Owner("u-1")

	id, err := b.Create(ctx, owner, fullPayload(types.NewCharacter("Ada")))
	require.NoError(t, err)

	err = b.Update(ctx, owner, id, types.Payload{Kind: types.PayloadDelta, Fields: map[string]any{
		"health_superficial": 5, "health_aggravated": 3,
	}})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("health_superficial"))

	got, err := b.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Zero(t, got.Health.Superficial)
}

func TestOwnerIsolation(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	id, err := b.Create(ctx, types.Owner("u-1"), fullPayload(types.NewCharacter("Ada")))
	require.NoError(t, err)

	_, err = b.Get(ctx, types.Owner("u-2"), id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	err = b.Update(ctx, types.Owner("u-2"), id, types.Payload{Kind: types.PayloadDelta, Fields: map[string]any{"name": "Stolen"}})
	assert.ErrorIs(t, err, types.ErrNotFound)

	got, err := b.Get(ctx, types.Storyteller("st"), id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = b.Get(ctx, types.Access{Mode: types.ModeOwner}, id)
	assert.ErrorIs(t, err, types.ErrForbidden)
	_, err = b.Get(ctx, types.Access{Mode: "admin", UserID: "u-1"}, id)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestList(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	for _, tc := range []struct{ owner, name string }{{"u-1", "Zed"}, {"u-1", "Ada"}, {"u-2", "Bo"}} {
		_, err := b.Create(ctx, types.Owner(tc.owner), fullPayload(types.NewCharacter(tc.name)))
		require.NoError(t, err)
	}

	mine, err := b.List(ctx, types.Owner("u-1"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Ada", mine[0].Name)
	assert.Equal(t, "Zed", mine[1].Name)

	all, err := b.List(ctx, types.Storyteller("st"))
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPersistenceAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	owner := types.Owner("u-1")
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend(nil)
	require.NoError(t, b.Attach(config))
	id, err := b.Create(ctx, owner, fullPayload(sampleCharacter(t, "Ada")))
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b2 := NewBackend(nil)
	require.NoError(t, b2.Attach(config))
	t.Cleanup(func() { b2.Detach() })

	got, err := b2.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "Night Shift", got.Text["chronicle"])
	assert.Equal(t, 1, got.Ledger.Len())
	assert.Equal(t, []types.Touchstone{{Name: "Mara"}}, got.Touchstones)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	owner := types.Owner("u-1")
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend(nil)
	require.NoError(t, b.Attach(config))
	doomed, err := b.Create(ctx, owner, fullPayload(sampleCharacter(t, "Ada")))
	require.NoError(t, err)
	kept, err := b.Create(ctx, owner, fullPayload(sampleCharacter(t, "Bo")))
	require.NoError(t, err)
	other, err := b.Create(ctx, types.Owner("u-2"), fullPayload(types.NewCharacter("Cy")))
	require.NoError(t, err)

	assert.ErrorIs(t, b.Delete(ctx, types.Owner("u-2"), doomed), types.ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, owner, ""), types.ErrInvalidID)
	assert.ErrorIs(t, b.Delete(ctx, types.Access{Mode: types.ModeOwner}, doomed), types.ErrForbidden)

	require.NoError(t, b.Delete(ctx, owner, doomed))
	_, err = b.Get(ctx, owner, doomed)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, owner, doomed), types.ErrNotFound)

	require.NoError(t, b.Delete(ctx, types.Storyteller("st"), other))
	require.NoError(t, b.Detach())
	assert.ErrorIs(t, b.Delete(ctx, owner, kept), types.ErrStoreClosed)

	data, err := os.ReadFile(filepath.Join(dir, xpLogJSONL))
	require.NoError(t, err)
	assert.NotContains(t, string(data), doomed)
	assert.Contains(t, string(data), kept)

	b2 := NewBackend(nil)
	require.NoError(t, b2.Attach(config))
	t.Cleanup(func() { b2.Detach() })
	all, err := b2.List(ctx, types.Storyteller("st"))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept, all[0].ID)
	got, err := b2.Get(ctx, owner, kept)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Ledger.Len())
}

// blockFile replaces a JSONL file with a directory so the next rewrite of
// it fails.
func blockFile(t *testing.T, dir, name string) func() {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.Remove(p))
	require.NoError(t, os.Mkdir(p, 0o755))
	return func() { require.NoError(t, os.Remove(p)) }
}

func TestCreateStoresNothingWhenJSONLWriteFails(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()
	owner := types.Owner("u-1")

	unblock := blockFile(t, dir, charactersJSONL)
	_, err := b.Create(ctx, owner, fullPayload(sampleCharacter(t, "Ada")))
	var te *types.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "create", te.Op)

	list, err := b.List(ctx, types.Storyteller("st"))
	require.NoError(t, err)
	assert.Empty(t, list)
	n, err := b.countOwned(ctx, "u-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	unblock()
	id, err := b.Create(ctx, owner, fullPayload(sampleCharacter(t, "Ada")))
	require.NoError(t, err)
	list, err = b.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
}

func TestUpdateRestoresFilesWhenJSONLWriteFails(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()
	owner := types.Owner("u-1")

	id, err := b.Create(ctx, owner, fullPayload(sampleCharacter(t, "Ada")))
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(dir, charactersJSONL))
	require.NoError(t, err)

	unblock := blockFile(t, dir, xpLogJSONL)
	err = b.Update(ctx, owner, id, types.Payload{Kind: types.PayloadDelta, Fields: map[string]any{"name": "Bo"}})
	var te *types.TransportError
	require.ErrorAs(t, err, &te)

	got, err := b.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	after, err := os.ReadFile(filepath.Join(dir, charactersJSONL))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	unblock()
	require.NoError(t, b.Update(ctx, owner, id, types.Payload{Kind: types.PayloadDelta, Fields: map[string]any{"name": "Bo"}}))
	got, err = b.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, "Bo", got.Name)
}
