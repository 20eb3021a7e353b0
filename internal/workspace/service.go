// Package workspace manages the workspace list and the engine serving each
// workspace.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/engine"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

var (
	// ErrWorkspaceNotFound is returned for an unknown workspace id.
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrEmptyTitle is returned when a workspace title is blank.
	ErrEmptyTitle = errors.New("workspace title cannot be empty")
)

// EngineFactory builds the engine of a workspace. The service passes a
// notifier that must receive every engine event.
type EngineFactory func(workspaceID string, notifier engine.Notifier) *engine.Engine

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPendingPromptTTL sets how long a staged prompt stays valid.
func WithPendingPromptTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// DefaultPendingPromptTTL is how long a staged prompt stays valid by default.
const DefaultPendingPromptTTL = 5 * time.Minute

// Service owns the workspace list, the pending prompt slot and the engine
// cache. The list lock and the engine lock are never held together with an
// engine's own lock in the opposite order: engines call back into the list
// through observe only.
type Service struct {
	store     *storage.BestEffort
	newEngine EngineFactory
	logger    *logger.Logger
	ttl       time.Duration
	now       func() time.Time

	mu         sync.Mutex
	loaded     bool
	workspaces []model.Workspace
	pending    *model.PendingPrompt
	sidebar    *bool

	enginesMu sync.Mutex
	engines   map[string]*engine.Engine
}

// NewService creates a workspace service.
func NewService(store *storage.BestEffort, factory EngineFactory, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		newEngine: factory,
		logger:    logger.OrGlobal(log),
		ttl:       DefaultPendingPromptTTL,
		now:       func() time.Time { return time.Now().UTC() },
		engines:   make(map[string]*engine.Engine),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all workspaces, most recently created first.
func (s *Service) List(ctx context.Context) []model.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked(ctx)
	out := make([]model.Workspace, len(s.workspaces))
	for i, w := range s.workspaces {
		out[i] = cloneWorkspace(w)
	}
	return out
}

// Get returns one workspace.
func (s *Service) Get(ctx context.Context, id string) (model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(ctx, id)
	if i < 0 {
		return model.Workspace{}, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	return cloneWorkspace(s.workspaces[i]), nil
}

// Create adds a workspace. Its main branch exists implicitly.
func (s *Service) Create(ctx context.Context, req model.CreateWorkspaceRequest) (model.Workspace, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Workspace{}, ErrEmptyTitle
	}

	ws := model.Workspace{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Title:       title,
		LastActive:  s.now(),
		BranchCount: 1,
		Tags:        normalizeTags(req.Tags),
	}

	s.mu.Lock()
	s.loadLocked(ctx)
	s.workspaces = append([]model.Workspace{ws}, s.workspaces...)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("workspace created", zap.String("workspace_id", ws.ID))
	return cloneWorkspace(ws), nil
}

// Update changes the title and/or tags of a workspace.
func (s *Service) Update(ctx context.Context, id string, req model.UpdateWorkspaceRequest) (model.Workspace, error) {
	return s.mutate(ctx, id, func(w *model.Workspace) error {
		if req.Title != "" {
			title := strings.TrimSpace(req.Title)
			if title == "" {
				return ErrEmptyTitle
			}
			w.Title = title
		}
		if req.Tags != nil {
			w.Tags = normalizeTags(req.Tags)
		}
		return nil
	})
}

// Touch marks a workspace as active now.
func (s *Service) Touch(ctx context.Context, id string) (model.Workspace, error) {
	return s.mutate(ctx, id, func(w *model.Workspace) error {
		w.LastActive = s.now()
		return nil
	})
}

// Delete removes a workspace with all of its branches and messages.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(ctx, id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	s.workspaces = append(s.workspaces[:i:i], s.workspaces[i+1:]...)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.enginesMu.Lock()
	if eng, ok := s.engines[id]; ok {
		eng.Close()
		delete(s.engines, id)
	}
	s.enginesMu.Unlock()

	s.purge(ctx, id)
	s.logger.Info("workspace deleted", zap.String("workspace_id", id))
	return nil
}

// purge removes every persisted key of a workspace.
func (s *Service) purge(ctx context.Context, id string) {
	var branches []model.Branch
	if !s.store.Load(ctx, storage.BranchesKey(id), &branches) {
		branches = nil
	}

	ids := map[string]bool{model.MainBranchID: true}
	for _, b := range branches {
		ids[b.ID] = true
	}
	for branchID := range ids {
		s.store.Delete(ctx, storage.MessagesKey(id, branchID))
		s.store.Delete(ctx, storage.BranchMetadataKey(id, branchID))
	}
	s.store.Delete(ctx, storage.BranchesKey(id))
}

// Engine returns the engine of a workspace, opening it on first use.
func (s *Service) Engine(ctx context.Context, id string) (*engine.Engine, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	s.enginesMu.Lock()
	eng, ok := s.engines[id]
	if !ok {
		eng = s.newEngine(id, engine.NotifierFunc(s.observe))
		eng.Open(ctx)
		s.engines[id] = eng
	}
	s.enginesMu.Unlock()

	if !ok {
		count := eng.BranchCount()
		if _, err := s.mutate(ctx, id, func(w *model.Workspace) error {
			w.BranchCount = count
			return nil
		}); err != nil {
			s.logger.Warn("failed to refresh branch count", zap.String("workspace_id", id), zap.Error(err))
		}
	}
	return eng, nil
}

// Close abandons the streams of every open engine.
func (s *Service) Close() {
	s.enginesMu.Lock()
	defer s.enginesMu.Unlock()

	for id, eng := range s.engines {
		eng.Close()
		delete(s.engines, id)
	}
}

// observe keeps cached workspace fields current. It runs under the
// engine's lock and only takes the list lock.
func (s *Service) observe(event model.Event) {
	var apply func(w *model.Workspace)
	switch event.Type {
	case model.EventBranchCreated:
		apply = func(w *model.Workspace) { w.BranchCount++; w.LastActive = event.At }
	case model.EventBranchDeleted:
		apply = func(w *model.Workspace) {
			if w.BranchCount > 1 {
				w.BranchCount--
			}
		}
	case model.EventMessageCreated:
		apply = func(w *model.Workspace) { w.LastActive = event.At }
	default:
		return
	}

	if _, err := s.mutate(context.Background(), event.WorkspaceID, func(w *model.Workspace) error {
		apply(w)
		return nil
	}); err != nil && !errors.Is(err, ErrWorkspaceNotFound) {
		s.logger.Warn("failed to update workspace", zap.Error(err))
	}
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*model.Workspace) error) (model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(ctx, id)
	if i < 0 {
		return model.Workspace{}, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}

	w := cloneWorkspace(s.workspaces[i])
	if err := fn(&w); err != nil {
		return model.Workspace{}, err
	}
	s.workspaces[i] = w
	s.persistLocked(ctx)
	return cloneWorkspace(w), nil
}

func (s *Service) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	var loaded []model.Workspace
	if !s.store.Load(ctx, storage.WorkspacesKey, &loaded) {
		loaded = nil
	}
	s.workspaces = loaded
	s.loaded = true
}

func (s *Service) indexLocked(ctx context.Context, id string) int {
	s.loadLocked(ctx)
	for i := range s.workspaces {
		if s.workspaces[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) persistLocked(ctx context.Context) {
	list := s.workspaces
	if list == nil {
		list = []model.Workspace{}
	}
	s.store.Save(ctx, storage.WorkspacesKey, list)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func cloneWorkspace(w model.Workspace) model.Workspace {
	w.Tags = append([]string{}, w.Tags...)
	return w
}
