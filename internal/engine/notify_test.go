package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
)

func TestHubRoutesByWorkspace(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe("a", 4)
	b, unsubB := h.Subscribe("b", 4)
	defer unsubB()

	h.Notify(model.Event{Type: model.EventBranchCreated, WorkspaceID: "a"})

	require.Len(t, a, 1)
	assert.Len(t, b, 0)
	assert.Equal(t, model.EventBranchCreated, (<-a).Type)

	unsubA()
	unsubA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers("a"))
	assert.Equal(t, 1, h.Subscribers("b"))
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe("a", 1)
	defer unsub()

	h.Notify(model.Event{Type: model.EventMessageChunk, WorkspaceID: "a", Content: "H"})
	h.Notify(model.Event{Type: model.EventMessageChunk, WorkspaceID: "a", Content: "Hi"})

	require.Len(t, ch, 1)
	assert.Equal(t, "H", (<-ch).Content)
}

func TestFanoutSkipsNil(t *testing.T) {
	var got []model.EventType
	f := Fanout{nil, NotifierFunc(func(e model.Event) { got = append(got, e.Type) })}

	f.Notify(model.Event{Type: model.EventBranchDeleted})
	assert.Equal(t, []model.EventType{model.EventBranchDeleted}, got)
}
