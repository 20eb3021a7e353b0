// Package branch tracks the branch topology of a workspace.
package branch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
)

var (
	// ErrBranchNotFound is returned for an unknown branch id.
	ErrBranchNotFound = errors.New("branch not found")
	// ErrRootBranch is returned when deleting the main branch.
	ErrRootBranch = errors.New("main branch cannot be deleted")
	// ErrEmptyName is returned when a branch name is blank.
	ErrEmptyName = errors.New("branch name cannot be empty")
)

// DefaultWorkMode applies to branches without stored metadata.
const DefaultWorkMode = model.WorkModeThink

// Registry records the branches of one workspace and which one is active.
// It only tracks topology; copying messages on fork is the engine's job.
// Not safe for concurrent use.
type Registry struct {
	store       *storage.BestEffort
	workspaceID string
	branches    []model.Branch
	now         func() time.Time
}

// NewRegistry creates a registry for workspaceID. Call Load before use.
func NewRegistry(store *storage.BestEffort, workspaceID string) *Registry {
	return &Registry{
		store:       store,
		workspaceID: workspaceID,
		branches:    []model.Branch{mainBranch(time.Now().UTC())},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Used by tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func mainBranch(at time.Time) model.Branch {
	return model.Branch{
		ID:        model.MainBranchID,
		Name:      "Main",
		CreatedAt: at,
		IsActive:  true,
	}
}

// Load reads the persisted branch list. A workspace with nothing persisted
// has a single active main branch. Exactly one branch is active afterwards.
func (r *Registry) Load(ctx context.Context) []model.Branch {
	var loaded []model.Branch
	if !r.store.Load(ctx, storage.BranchesKey(r.workspaceID), &loaded) || len(loaded) == 0 {
		loaded = []model.Branch{mainBranch(r.now())}
	}
	r.branches = loaded
	r.normalizeActive()
	return r.All()
}

// normalizeActive keeps the first active branch and falls back to main, or
// to the first branch when main is gone from a hand-edited store.
func (r *Registry) normalizeActive() {
	active := -1
	for i := range r.branches {
		if r.branches[i].IsActive && active < 0 {
			active = i
		}
		r.branches[i].IsActive = false
	}
	if active < 0 {
		active = r.index(model.MainBranchID)
	}
	if active < 0 {
		active = 0
	}
	r.branches[active].IsActive = true
}

// All returns a copy of the branches in creation order.
func (r *Registry) All() []model.Branch {
	return append([]model.Branch(nil), r.branches...)
}

// Len returns the number of branches.
func (r *Registry) Len() int {
	return len(r.branches)
}

// Get returns the branch with id.
func (r *Registry) Get(id string) (model.Branch, bool) {
	i := r.index(id)
	if i < 0 {
		return model.Branch{}, false
	}
	return r.branches[i], true
}

// Active returns the active branch.
func (r *Registry) Active() model.Branch {
	for _, b := range r.branches {
		if b.IsActive {
			return b
		}
	}
	return r.branches[0]
}

// Children returns the branches whose parent is id.
func (r *Registry) Children(id string) []model.Branch {
	var out []model.Branch
	for _, b := range r.branches {
		if b.ParentBranchID == id {
			out = append(out, b)
		}
	}
	return out
}

// Create records a new branch forked from parentID at forkMessageID.
func (r *Registry) Create(ctx context.Context, name, parentID, forkMessageID string) (model.Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Branch{}, ErrEmptyName
	}
	if r.index(parentID) < 0 {
		return model.Branch{}, fmt.Errorf("%w: parent %s", ErrBranchNotFound, parentID)
	}

	b := model.Branch{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Name:           name,
		ParentBranchID: parentID,
		ForkMessageID:  forkMessageID,
		CreatedAt:      r.now(),
	}

	r.branches = append(r.branches, b)
	r.persist(ctx)
	return b, nil
}

// Rename changes a branch's display name.
func (r *Registry) Rename(ctx context.Context, id, name string) (model.Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Branch{}, ErrEmptyName
	}
	i := r.index(id)
	if i < 0 {
		return model.Branch{}, fmt.Errorf("%w: %s", ErrBranchNotFound, id)
	}

	r.branches[i].Name = name
	r.persist(ctx)
	return r.branches[i], nil
}

// Delete removes a branch record. Children keep their now dangling parent
// reference. Deleting the active branch activates main.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if id == model.MainBranchID {
		return ErrRootBranch
	}
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, id)
	}

	wasActive := r.branches[i].IsActive
	r.branches = append(r.branches[:i:i], r.branches[i+1:]...)
	if wasActive {
		r.normalizeActive()
	}
	r.persist(ctx)
	return nil
}

// SetActive marks exactly one branch active.
func (r *Registry) SetActive(ctx context.Context, id string) error {
	if r.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, id)
	}

	for i := range r.branches {
		r.branches[i].IsActive = r.branches[i].ID == id
	}
	r.persist(ctx)
	return nil
}

// AncestorChain returns the branch and its ancestors, root first. The walk
// stops at a parent that no longer resolves or at a repeated id.
func (r *Registry) AncestorChain(id string) []model.Branch {
	var chain []model.Branch
	seen := make(map[string]bool)

	for cur := id; cur != "" && !seen[cur]; {
		b, ok := r.Get(cur)
		if !ok {
			break
		}
		seen[cur] = true
		chain = append(chain, b)
		cur = b.ParentBranchID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (r *Registry) index(id string) int {
	for i := range r.branches {
		if r.branches[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) persist(ctx context.Context) {
	r.store.Save(ctx, storage.BranchesKey(r.workspaceID), r.branches)
}
