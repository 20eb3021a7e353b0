package model

import (
	"time"
)

// EventType represents the type of engine event.
type EventType string

const (
	EventMessageCreated EventType = "message.created"
	EventMessageChunk   EventType = "message.chunk"
	EventMessageStatus  EventType = "message.status"
	EventMessageRemoved EventType = "message.removed"
	EventMessagePinned  EventType = "message.pinned"
	EventBranchCreated  EventType = "branch.created"
	EventBranchSwitched EventType = "branch.switched"
	EventBranchDeleted  EventType = "branch.deleted"
	EventBranchRenamed  EventType = "branch.renamed"
)

// Event describes a state change in a workspace engine.
type Event struct {
	Type        EventType `json:"type"`
	WorkspaceID string    `json:"workspaceId"`
	BranchID    string    `json:"branchId"`
	MessageID   string    `json:"messageId,omitempty"`
	Message     *Message  `json:"message,omitempty"`
	Branch      *Branch   `json:"branch,omitempty"`
	Content     string    `json:"content,omitempty"`
	Status      Status    `json:"status,omitempty"`
	At          time.Time `json:"at"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
