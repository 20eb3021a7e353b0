package model

import (
	"time"
)

// MainBranchID is the reserved id of the root branch of every workspace.
const MainBranchID = "main"

// Branch is a forkable conversation thread within a workspace.
type Branch struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ParentBranchID string    `json:"parentBranchId,omitempty"`
	ForkMessageID  string    `json:"forkMessageId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	IsActive       bool      `json:"isActive"`
}

// IsRoot reports whether the branch has no parent.
func (b Branch) IsRoot() bool {
	return b.ParentBranchID == ""
}

// WorkMode is a cosmetic tag describing the intended depth of responses.
type WorkMode string

const (
	WorkModeQuick    WorkMode = "quick"
	WorkModeThink    WorkMode = "think"
	WorkModeResearch WorkMode = "research"
	WorkModeCreate   WorkMode = "create"
)

// Valid reports whether w is a known work mode.
func (w WorkMode) Valid() bool {
	switch w {
	case WorkModeQuick, WorkModeThink, WorkModeResearch, WorkModeCreate:
		return true
	}
	return false
}

// BranchMetadata is per-branch state persisted next to the message log.
type BranchMetadata struct {
	WorkMode WorkMode `json:"workMode"`
}
