package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle state of a message.
type Status string

const (
	StatusSending   Status = "sending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Terminal reports whether content is frozen in this status.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// CanTransition reports whether a message may move from one status to another.
// Complete and error are terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusSending:
		return to == StatusStreaming || to == StatusComplete || to == StatusError
	case StatusStreaming:
		return to == StatusComplete || to == StatusError
	default:
		return false
	}
}

// ResponseMode describes how the assistant was asked to respond. Cosmetic.
type ResponseMode string

const (
	ResponseModeAuto       ResponseMode = "auto"
	ResponseModeQuick      ResponseMode = "quick"
	ResponseModeDeep       ResponseMode = "deep"
	ResponseModeStepByStep ResponseMode = "step-by-step"
	ResponseModeQuestions  ResponseMode = "questions"
)

// Valid reports whether m is a known response mode. The empty mode is valid.
func (m ResponseMode) Valid() bool {
	switch m {
	case "", ResponseModeAuto, ResponseModeQuick, ResponseModeDeep, ResponseModeStepByStep, ResponseModeQuestions:
		return true
	}
	return false
}

// Attachment is an opaque reference carried alongside a message.
type Attachment struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Preview string `json:"preview,omitempty"`
}

// Message represents a conversation message within one branch.
type Message struct {
	ID           string       `json:"id"`
	Role         Role         `json:"role"`
	Content      string       `json:"content"`
	Timestamp    time.Time    `json:"timestamp"`
	Status       Status       `json:"status"`
	IsPinned     bool         `json:"isPinned"`
	ResponseMode ResponseMode `json:"responseMode,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

// Clone returns a deep copy so that callers never share attachment slices.
func (m Message) Clone() Message {
	if m.Attachments != nil {
		m.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return m
}

// CloneMessages deep-copies a message sequence.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
