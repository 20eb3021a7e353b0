package branch

import (
	"context"
	"fmt"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
)

// Metadata returns the stored metadata of a branch, defaulting the work mode.
func (r *Registry) Metadata(ctx context.Context, id string) model.BranchMetadata {
	var meta model.BranchMetadata
	if !r.store.Load(ctx, storage.BranchMetadataKey(r.workspaceID, id), &meta) || !meta.WorkMode.Valid() {
		meta = model.BranchMetadata{WorkMode: DefaultWorkMode}
	}
	return meta
}

// SetWorkMode stores the work mode of a branch.
func (r *Registry) SetWorkMode(ctx context.Context, id string, mode model.WorkMode) (model.BranchMetadata, error) {
	if r.index(id) < 0 {
		return model.BranchMetadata{}, fmt.Errorf("%w: %s", ErrBranchNotFound, id)
	}
	if !mode.Valid() {
		return model.BranchMetadata{}, fmt.Errorf("invalid work mode %q", mode)
	}

	meta := model.BranchMetadata{WorkMode: mode}
	r.store.Save(ctx, storage.BranchMetadataKey(r.workspaceID, id), meta)
	return meta, nil
}

// DropMetadata removes the stored metadata of a branch.
func (r *Registry) DropMetadata(ctx context.Context, id string) {
	r.store.Delete(ctx, storage.BranchMetadataKey(r.workspaceID, id))
}

// WorkMode returns the work mode of a branch.
func (r *Registry) WorkMode(ctx context.Context, id string) model.WorkMode {
	return r.Metadata(ctx, id).WorkMode
}
