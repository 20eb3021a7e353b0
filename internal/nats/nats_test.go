package nats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{storage.WorkspacesKey, "workspaces"},
		{storage.PendingPromptKey, "pending-prompt"},
		{storage.BranchesKey("0190a1b2-c3d4"), "branches.0190a1b2-c3d4"},
		{storage.MessagesKey("ws1", "main"), "messages.ws1.main"},
		{storage.BranchMetadataKey("ws1", "b2"), "branch-metadata.ws1.b2"},
		{"a.b", "a=2Eb"},
		{"a b*", "a=20b=2A"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeKey(tt.key))
		})
	}
}

func TestEncodeKeyDoesNotCollide(t *testing.T) {
	assert.NotEqual(t, EncodeKey("messages:a.b:c"), EncodeKey("messages:a:b:c"))
}

func TestEventSubjects(t *testing.T) {
	assert.Equal(t, "workspace.ws1.main.branch.created", EventSubject("ws1", "main", model.EventBranchCreated))
	assert.Equal(t, "workspace.ws1.>", WorkspaceFilter("ws1"))
	assert.False(t, Published(model.EventMessageChunk))
	assert.True(t, Published(model.EventMessageStatus))
}

func TestCreateTLSConfigRejectsBadCA(t *testing.T) {
	dir := t.TempDir()

	_, err := createTLSConfig(filepath.Join(dir, "missing.pem"), "", "")
	assert.Error(t, err)

	bad := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))
	_, err = createTLSConfig(bad, "", "")
	assert.ErrorContains(t, err, "parse CA certificate")
}
