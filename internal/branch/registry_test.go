package branch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/thinking-workspace/internal/branch"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

func newRegistry(t *testing.T, a storage.Adapter) *branch.Registry {
	t.Helper()
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	r := branch.NewRegistry(storage.NewBestEffort(a, logger.NewNop()), "ws1").
		WithClock(func() time.Time { return at })
	r.Load(context.Background())
	return r
}

func ids(branches []model.Branch) []string {
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		out = append(out, b.ID)
	}
	return out
}

func TestLoadDefaultsToMain(t *testing.T) {
	r := newRegistry(t, storage.NewMemory())

	all := r.All()
	require.Len(t, all, 1)
	assert.Equal(t, model.MainBranchID, all[0].ID)
	assert.True(t, all[0].IsRoot())
	assert.Equal(t, model.MainBranchID, r.Active().ID)
}

func TestLoadMalformedDefaultsToMain(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Set(context.Background(), storage.BranchesKey("ws1"), []byte(`"nope"`)))

	r := newRegistry(t, mem)
	assert.Equal(t, []string{model.MainBranchID}, ids(r.All()))
}

func TestCreateRecordsParentage(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	r := newRegistry(t, mem)

	b, err := r.Create(ctx, "  Alt take ", model.MainBranchID, "m2")
	require.NoError(t, err)

	assert.NotEqual(t, model.MainBranchID, b.ID)
	assert.Equal(t, "Alt take", b.Name)
	assert.Equal(t, model.MainBranchID, b.ParentBranchID)
	assert.Equal(t, "m2", b.ForkMessageID)
	assert.False(t, b.IsActive)

	reloaded := newRegistry(t, mem)
	got, ok := reloaded.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, b, got)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, storage.NewMemory())

	_, err := r.Create(ctx, " ", model.MainBranchID, "m1")
	assert.ErrorIs(t, err, branch.ErrEmptyName)

	_, err = r.Create(ctx, "x", "ghost", "m1")
	assert.ErrorIs(t, err, branch.ErrBranchNotFound)
	assert.Equal(t, 1, r.Len())
}

func TestSetActiveKeepsExactlyOne(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, storage.NewMemory())
	b, err := r.Create(ctx, "b", model.MainBranchID, "m1")
	require.NoError(t, err)

	require.NoError(t, r.SetActive(ctx, b.ID))
	assert.ErrorIs(t, r.SetActive(ctx, "ghost"), branch.ErrBranchNotFound)

	active := 0
	for _, br := range r.All() {
		if br.IsActive {
			active++
			assert.Equal(t, b.ID, br.ID)
		}
	}
	assert.Equal(t, 1, active)
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, storage.NewMemory())

	b, err := r.Rename(ctx, model.MainBranchID, "Trunk")
	require.NoError(t, err)
	assert.Equal(t, "Trunk", b.Name)

	_, err = r.Rename(ctx, "ghost", "x")
	assert.ErrorIs(t, err, branch.ErrBranchNotFound)
	_, err = r.Rename(ctx, model.MainBranchID, "")
	assert.ErrorIs(t, err, branch.ErrEmptyName)
}

func TestDeleteMainRejected(t *testing.T) {
	r := newRegistry(t, storage.NewMemory())
	assert.ErrorIs(t, r.Delete(context.Background(), model.MainBranchID), branch.ErrRootBranch)
	assert.Equal(t, 1, r.Len())
}

func TestDeleteActiveReactivatesMain(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, storage.NewMemory())
	b, err := r.Create(ctx, "b", model.MainBranchID, "m1")
	require.NoError(t, err)
	require.NoError(t, r.SetActive(ctx, b.ID))

	require.NoError(t, r.Delete(ctx, b.ID))

	assert.Equal(t, model.MainBranchID, r.Active().ID)
	assert.ErrorIs(t, r.Delete(ctx, b.ID), branch.ErrBranchNotFound)
}

func TestDeleteOrphansChildren(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, storage.NewMemory())

	mid, err := r.Create(ctx, "mid", model.MainBranchID, "m1")
	require.NoError(t, err)
	leaf, err := r.Create(ctx, "leaf", mid.ID, "m2")
	require.NoError(t, err)

	assert.Equal(t, []string{model.MainBranchID, mid.ID, leaf.ID}, ids(r.AncestorChain(leaf.ID)))
	assert.Equal(t, []string{leaf.ID}, ids(r.Children(mid.ID)))

	require.NoError(t, r.Delete(ctx, mid.ID))

	got, ok := r.Get(leaf.ID)
	require.True(t, ok)
	assert.Equal(t, mid.ID, got.ParentBranchID, "child keeps dangling parent")
	assert.Equal(t, []string{leaf.ID}, ids(r.AncestorChain(leaf.ID)))
}

func TestAncestorChainTerminatesOnCycle(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	cyclic := `[
		{"id":"main","name":"Main","createdAt":"2026-01-01T00:00:00Z","isActive":true},
		{"id":"a","name":"A","parentBranchId":"b","createdAt":"2026-01-01T00:00:00Z"},
		{"id":"b","name":"B","parentBranchId":"a","createdAt":"2026-01-01T00:00:00Z"}
	]`
	require.NoError(t, mem.Set(ctx, storage.BranchesKey("ws1"), []byte(cyclic)))

	r := newRegistry(t, mem)

	assert.Equal(t, []string{"b", "a"}, ids(r.AncestorChain("a")))
	assert.Empty(t, r.AncestorChain("ghost"))
}

func TestLoadNormalizesActive(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	none := `[{"id":"main","name":"Main","createdAt":"2026-01-01T00:00:00Z"},{"id":"x","name":"X","parentBranchId":"main","createdAt":"2026-01-01T00:00:00Z","isActive":true},{"id":"y","name":"Y","parentBranchId":"main","createdAt":"2026-01-01T00:00:00Z","isActive":true}]`
	require.NoError(t, mem.Set(ctx, storage.BranchesKey("ws1"), []byte(none)))

	r := newRegistry(t, mem)
	assert.Equal(t, "x", r.Active().ID)
	got, _ := r.Get("y")
	assert.False(t, got.IsActive)
}

func TestWorkModeMetadata(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	r := newRegistry(t, mem)

	assert.Equal(t, branch.DefaultWorkMode, r.WorkMode(ctx, model.MainBranchID))

	meta, err := r.SetWorkMode(ctx, model.MainBranchID, model.WorkModeResearch)
	require.NoError(t, err)
	assert.Equal(t, model.WorkModeResearch, meta.WorkMode)
	assert.Equal(t, model.WorkModeResearch, newRegistry(t, mem).WorkMode(ctx, model.MainBranchID))

	_, err = r.SetWorkMode(ctx, model.MainBranchID, "loud")
	assert.Error(t, err)
	_, err = r.SetWorkMode(ctx, "ghost", model.WorkModeQuick)
	assert.ErrorIs(t, err, branch.ErrBranchNotFound)

	r.DropMetadata(ctx, model.MainBranchID)
	assert.Equal(t, branch.DefaultWorkMode, r.WorkMode(ctx, model.MainBranchID))
}
