// Package storage provides the key-value persistence adapter used by the
// workspace engine, plus memory and disk backends.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has never been set or was removed.
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable indicates the backend could not be reached or is full.
	ErrUnavailable = errors.New("storage unavailable")
)

// Adapter is a key-value store of opaque JSON blobs.
type Adapter interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by adapters that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Persisted keys.
const (
	WorkspacesKey      = "workspaces"
	PendingPromptKey   = "pending-prompt"
	SidebarExpandedKey = "sidebar-expanded"
)

// BranchesKey returns the key holding the branch list of a workspace.
func BranchesKey(workspaceID string) string {
	return "branches:" + workspaceID
}

// MessagesKey returns the key holding the message log of a branch.
func MessagesKey(workspaceID, branchID string) string {
	return "messages:" + workspaceID + ":" + branchID
}

// BranchMetadataKey returns the key holding a branch's metadata.
func BranchMetadataKey(workspaceID, branchID string) string {
	return "branch-metadata:" + workspaceID + ":" + branchID
}
