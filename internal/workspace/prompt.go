package workspace

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
)

// ErrEmptyPrompt is returned when staging a blank prompt.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// SetPendingPrompt stages a prompt for the next conversation view. It
// replaces any prompt already staged.
func (s *Service) SetPendingPrompt(ctx context.Context, content string, meta model.PendingPromptMeta) (model.PendingPrompt, error) {
	if strings.TrimSpace(content) == "" {
		return model.PendingPrompt{}, ErrEmptyPrompt
	}
	if !meta.WorkMode.Valid() {
		meta.WorkMode = model.WorkModeThink
	}
	meta.Timestamp = s.now()

	p := model.PendingPrompt{Content: content, Meta: meta}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &p
	s.store.Save(ctx, storage.PendingPromptKey, p)
	return p, nil
}

// TakePendingPrompt returns the staged prompt and removes it. A prompt
// older than the TTL is removed and reported as absent.
func (s *Service) TakePendingPrompt(ctx context.Context) (model.PendingPrompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pending
	if p == nil {
		var loaded model.PendingPrompt
		if s.store.Load(ctx, storage.PendingPromptKey, &loaded) {
			p = &loaded
		}
	}
	if p == nil {
		return model.PendingPrompt{}, false
	}

	s.pending = nil
	s.store.Delete(ctx, storage.PendingPromptKey)

	if age := s.now().Sub(p.Meta.Timestamp); age > s.ttl {
		s.logger.Debug("discarding expired pending prompt", zap.Duration("age", age))
		return model.PendingPrompt{}, false
	}
	return *p, true
}

// SidebarExpanded returns the sidebar preference. It defaults to expanded.
func (s *Service) SidebarExpanded(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sidebar == nil {
		expanded := true
		var stored bool
		if s.store.Load(ctx, storage.SidebarExpandedKey, &stored) {
			expanded = stored
		}
		s.sidebar = &expanded
	}
	return *s.sidebar
}

// SetSidebarExpanded stores the sidebar preference.
func (s *Service) SetSidebarExpanded(ctx context.Context, expanded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sidebar = &expanded
	s.store.Save(ctx, storage.SidebarExpandedKey, expanded)
}
