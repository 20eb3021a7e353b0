package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
	"github.com/capitalize-ai/thinking-workspace/internal/storage/storagetest"
	"github.com/capitalize-ai/thinking-workspace/internal/store"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

var ts = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newLog(t *testing.T, a storage.Adapter) *store.Messages {
	t.Helper()
	return store.New(storage.NewBestEffort(a, logger.NewNop()), "ws1", "main")
}

func userMsg(id, content string) model.Message {
	return model.Message{ID: id, Role: model.RoleUser, Content: content, Timestamp: ts, Status: model.StatusComplete}
}

func streamingMsg(id string) model.Message {
	return model.Message{ID: id, Role: model.RoleAssistant, Timestamp: ts, Status: model.StatusStreaming}
}

func TestRoundTripAfterMutations(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	log := newLog(t, mem)

	require.NoError(t, log.Append(ctx, userMsg("u1", "Hello")))
	require.NoError(t, log.Append(ctx, streamingMsg("a1")))
	require.NoError(t, log.UpdateContent(ctx, "a1", "H"))
	require.NoError(t, log.UpdateContent(ctx, "a1", "Hi"))
	require.NoError(t, log.SetStatus(ctx, "a1", model.StatusComplete))
	require.NoError(t, log.SetPinned(ctx, "u1", true))

	want := log.All()

	reloaded := newLog(t, mem)
	got := reloaded.Load(ctx)

	assert.Equal(t, want, got)
	require.Len(t, got, 2)
	assert.Equal(t, "Hi", got[1].Content)
	assert.True(t, got[0].IsPinned)
}

func TestLoadMalformedYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.Set(ctx, storage.MessagesKey("ws1", "main"), []byte(`[{"id":`)))

	log := newLog(t, mem)

	assert.Empty(t, log.Load(ctx))
	assert.Equal(t, 0, log.Len())
}

func TestLoadAbsentYieldsEmpty(t *testing.T) {
	log := newLog(t, storage.NewMemory())
	assert.Empty(t, log.Load(context.Background()))
}

func TestContentOnlyGrowsWhileStreaming(t *testing.T) {
	ctx := context.Background()
	log := newLog(t, storage.NewMemory())

	require.NoError(t, log.Append(ctx, userMsg("u1", "Hello")))
	require.NoError(t, log.Append(ctx, streamingMsg("a1")))

	require.NoError(t, log.UpdateContent(ctx, "a1", "abc"))
	assert.ErrorIs(t, log.UpdateContent(ctx, "a1", "ab"), store.ErrImmutableContent)
	assert.ErrorIs(t, log.UpdateContent(ctx, "a1", "xyz"), store.ErrImmutableContent)
	assert.ErrorIs(t, log.UpdateContent(ctx, "u1", "Hello!"), store.ErrImmutableContent)

	require.NoError(t, log.SetStatus(ctx, "a1", model.StatusComplete))
	assert.ErrorIs(t, log.UpdateContent(ctx, "a1", "abcd"), store.ErrImmutableContent)

	got, ok := log.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "abc", got.Content)
}

func TestSingleStreamingMessage(t *testing.T) {
	ctx := context.Background()
	log := newLog(t, storage.NewMemory())

	require.NoError(t, log.Append(ctx, streamingMsg("a1")))
	assert.ErrorIs(t, log.Append(ctx, streamingMsg("a2")), store.ErrStreamInProgress)

	pending := model.Message{ID: "a3", Role: model.RoleAssistant, Status: model.StatusSending}
	require.NoError(t, log.Append(ctx, pending))
	assert.ErrorIs(t, log.SetStatus(ctx, "a3", model.StatusStreaming), store.ErrStreamInProgress)

	streaming, ok := log.Streaming()
	require.True(t, ok)
	assert.Equal(t, "a1", streaming.ID)
}

func TestSetStatusRejectsLeavingTerminalState(t *testing.T) {
	ctx := context.Background()
	log := newLog(t, storage.NewMemory())

	require.NoError(t, log.Append(ctx, streamingMsg("a1")))
	require.NoError(t, log.SetStatus(ctx, "a1", model.StatusError))

	assert.ErrorIs(t, log.SetStatus(ctx, "a1", model.StatusStreaming), store.ErrInvalidTransition)
	assert.NoError(t, log.SetStatus(ctx, "a1", model.StatusError))
	assert.ErrorIs(t, log.SetStatus(ctx, "missing", model.StatusError), store.ErrMessageNotFound)
}

func TestRemoveAndPrefix(t *testing.T) {
	ctx := context.Background()
	log := newLog(t, storage.NewMemory())

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, log.Append(ctx, userMsg(id, id)))
	}
	assert.ErrorIs(t, log.Append(ctx, userMsg("m2", "again")), store.ErrDuplicateMessage)

	prefix, ok := log.Prefix("m2")
	require.True(t, ok)
	require.Len(t, prefix, 2)
	assert.Equal(t, "m2", prefix[1].ID)

	_, ok = log.Prefix("nope")
	assert.False(t, ok)

	require.NoError(t, log.Remove(ctx, "m2"))
	assert.ErrorIs(t, log.Remove(ctx, "m2"), store.ErrMessageNotFound)

	ids := []string{}
	for _, m := range log.All() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m3"}, ids)
	assert.Len(t, prefix, 2, "prefix copy is unaffected by removal")
}

func TestAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	log := newLog(t, storage.NewMemory())
	require.NoError(t, log.Append(ctx, userMsg("m1", "one")))

	all := log.All()
	all[0].Content = "mutated"

	got, _ := log.Get("m1")
	assert.Equal(t, "one", got.Content)
}

func TestMutationsSurviveStorageOutage(t *testing.T) {
	ctx := context.Background()
	flaky := storagetest.NewFlaky(nil)
	log := newLog(t, flaky)

	flaky.FailWrites(true)
	require.NoError(t, log.Append(ctx, userMsg("m1", "kept in memory")))

	assert.Equal(t, 1, log.Len())
	total, failed := flaky.SetCalls()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, failed)

	flaky.FailWrites(false)
	require.NoError(t, log.Append(ctx, userMsg("m2", "persisted")))

	reloaded := newLog(t, flaky)
	assert.Len(t, reloaded.Load(ctx), 2)
}

func TestDrop(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	log := newLog(t, mem)
	require.NoError(t, log.Append(ctx, userMsg("m1", "one")))

	log.Drop(ctx)

	assert.Equal(t, 0, log.Len())
	_, err := mem.Get(ctx, storage.MessagesKey("ws1", "main"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
