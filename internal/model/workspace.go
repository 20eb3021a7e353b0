// Package model defines data structures for the thinking workspace.
package model

import (
	"time"
)

// Workspace groups branches of one line of thinking.
type Workspace struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastActive  time.Time `json:"lastActive"`
	BranchCount int       `json:"branchCount"`
	Tags        []string  `json:"tags"`
}

// CreateWorkspaceRequest is the request to create a workspace.
type CreateWorkspaceRequest struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
}

// UpdateWorkspaceRequest is the request to update a workspace.
type UpdateWorkspaceRequest struct {
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// PendingPromptMeta carries the settings chosen alongside a staged prompt.
type PendingPromptMeta struct {
	WorkMode    WorkMode     `json:"workMode"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// PendingPrompt hands an initial message from one view to the view that
// renders the conversation. It is consumed once.
type PendingPrompt struct {
	Content string            `json:"content"`
	Meta    PendingPromptMeta `json:"meta"`
}
