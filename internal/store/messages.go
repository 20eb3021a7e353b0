// Package store holds the ordered message log of one workspace branch.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
)

var (
	// ErrMessageNotFound is returned when an id is not in the branch log.
	ErrMessageNotFound = errors.New("message not found")
	// ErrDuplicateMessage is returned when appending an id already present.
	ErrDuplicateMessage = errors.New("duplicate message id")
	// ErrImmutableContent is returned when editing a message that is not streaming,
	// or when an edit would shrink the revealed content.
	ErrImmutableContent = errors.New("message content is immutable")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStreamInProgress is returned when a second message would start streaming.
	ErrStreamInProgress = errors.New("another message is already streaming")
)

// Messages is the message log of a single (workspace, branch) pair.
// Every mutation persists the full sequence. Not safe for concurrent use;
// the engine serialises access.
type Messages struct {
	store       *storage.BestEffort
	workspaceID string
	branchID    string
	key         string
	messages    []model.Message
}

// New creates an empty log bound to its persistence key. Call Load to read
// previously persisted messages.
func New(store *storage.BestEffort, workspaceID, branchID string) *Messages {
	return &Messages{
		store:       store,
		workspaceID: workspaceID,
		branchID:    branchID,
		key:         storage.MessagesKey(workspaceID, branchID),
	}
}

// BranchID returns the branch this log belongs to.
func (m *Messages) BranchID() string {
	return m.branchID
}

// Load replaces the in-memory view with the persisted sequence. Absent or
// malformed data yields an empty log.
func (m *Messages) Load(ctx context.Context) []model.Message {
	var loaded []model.Message
	if !m.store.Load(ctx, m.key, &loaded) {
		loaded = nil
	}
	m.messages = loaded
	return m.All()
}

// All returns a copy of the log in conversation order.
func (m *Messages) All() []model.Message {
	return model.CloneMessages(m.messages)
}

// Len returns the number of messages.
func (m *Messages) Len() int {
	return len(m.messages)
}

// Get returns a copy of the message with id.
func (m *Messages) Get(id string) (model.Message, bool) {
	i := m.index(id)
	if i < 0 {
		return model.Message{}, false
	}
	return m.messages[i].Clone(), true
}

// Streaming returns the message currently streaming, if any.
func (m *Messages) Streaming() (model.Message, bool) {
	for _, msg := range m.messages {
		if msg.Status == model.StatusStreaming {
			return msg.Clone(), true
		}
	}
	return model.Message{}, false
}

// Prefix returns copies of all messages up to and including id.
func (m *Messages) Prefix(id string) ([]model.Message, bool) {
	i := m.index(id)
	if i < 0 {
		return nil, false
	}
	return model.CloneMessages(m.messages[:i+1]), true
}

// Append adds msg to the end of the log.
func (m *Messages) Append(ctx context.Context, msg model.Message) error {
	if m.index(msg.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, msg.ID)
	}
	if msg.Status == model.StatusStreaming {
		if _, streaming := m.Streaming(); streaming {
			return ErrStreamInProgress
		}
	}

	m.messages = append(m.messages, msg.Clone())
	m.persist(ctx)
	return nil
}

// UpdateContent replaces the content of a streaming message. The new content
// must extend what has already been revealed.
func (m *Messages) UpdateContent(ctx context.Context, id, content string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	msg := &m.messages[i]
	if msg.Status != model.StatusStreaming {
		return fmt.Errorf("%w: status is %s", ErrImmutableContent, msg.Status)
	}
	if !strings.HasPrefix(content, msg.Content) {
		return fmt.Errorf("%w: content may only grow", ErrImmutableContent)
	}

	msg.Content = content
	m.persist(ctx)
	return nil
}

// SetStatus moves a message through its lifecycle.
func (m *Messages) SetStatus(ctx context.Context, id string, status model.Status) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	msg := &m.messages[i]
	if msg.Status == status {
		return nil
	}
	if !model.CanTransition(msg.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, msg.Status, status)
	}
	if status == model.StatusStreaming {
		if other, streaming := m.Streaming(); streaming && other.ID != id {
			return ErrStreamInProgress
		}
	}

	msg.Status = status
	m.persist(ctx)
	return nil
}

// SetPinned sets the pin flag. It does not touch status or content.
func (m *Messages) SetPinned(ctx context.Context, id string, pinned bool) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	m.messages[i].IsPinned = pinned
	m.persist(ctx)
	return nil
}

// Remove deletes one message.
func (m *Messages) Remove(ctx context.Context, id string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	m.messages = append(m.messages[:i:i], m.messages[i+1:]...)
	m.persist(ctx)
	return nil
}

// Replace swaps the whole log, used when seeding a forked branch.
func (m *Messages) Replace(ctx context.Context, msgs []model.Message) {
	m.messages = model.CloneMessages(msgs)
	m.persist(ctx)
}

// Drop removes the persisted log and clears the in-memory view.
func (m *Messages) Drop(ctx context.Context) {
	m.messages = nil
	m.store.Delete(ctx, m.key)
}

func (m *Messages) index(id string) int {
	for i := range m.messages {
		if m.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Messages) persist(ctx context.Context) {
	msgs := m.messages
	if msgs == nil {
		msgs = []model.Message{}
	}
	m.store.Save(ctx, m.key, msgs)
}
