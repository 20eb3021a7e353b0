package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/llm"
	"github.com/capitalize-ai/thinking-workspace/internal/middleware"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/workspace"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

// PromptHandler handles the pending prompt hand-off, prompt refinement and
// UI preferences.
type PromptHandler struct {
	service *workspace.Service
	refiner *llm.Refiner
	logger  *logger.Logger
}

// NewPromptHandler creates a new prompt handler.
func NewPromptHandler(svc *workspace.Service, refiner *llm.Refiner, log *logger.Logger) *PromptHandler {
	return &PromptHandler{
		service: svc,
		refiner: refiner,
		logger:  logger.OrGlobal(log),
	}
}

// PendingPromptRequest is the body of PUT /pending-prompt.
type PendingPromptRequest struct {
	Content     string             `json:"content"`
	WorkMode    model.WorkMode     `json:"workMode,omitempty"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
}

// RefineRequest is the body of POST /refine.
type RefineRequest struct {
	Prompt   string         `json:"prompt"`
	WorkMode model.WorkMode `json:"workMode,omitempty"`
}

// SidebarPreference is the sidebar display preference.
type SidebarPreference struct {
	Expanded bool `json:"expanded"`
}

// SetPending handles PUT /api/v1/pending-prompt
func (h *PromptHandler) SetPending(w http.ResponseWriter, r *http.Request) {
	var req PendingPromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateAttachments(req.Attachments); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.service.SetPendingPrompt(r.Context(), req.Content, model.PendingPromptMeta{
		WorkMode:    req.WorkMode,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// TakePending handles GET /api/v1/pending-prompt. The prompt is consumed.
func (h *PromptHandler) TakePending(w http.ResponseWriter, r *http.Request) {
	p, ok := h.service.TakePendingPrompt(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Refine handles POST /api/v1/refine
func (h *PromptHandler) Refine(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageContent(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.WorkMode.Valid() {
		req.WorkMode = model.WorkModeThink
	}

	refined, err := h.refiner.Refine(r.Context(), req.Prompt, req.WorkMode)
	if err != nil {
		h.logger.Warn("prompt refinement failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"prompt": refined,
	})
}

// GetSidebar handles GET /api/v1/preferences/sidebar
func (h *PromptHandler) GetSidebar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SidebarPreference{Expanded: h.service.SidebarExpanded(r.Context())})
}

// PutSidebar handles PUT /api/v1/preferences/sidebar
func (h *PromptHandler) PutSidebar(w http.ResponseWriter, r *http.Request) {
	var req SidebarPreference
	if !decodeJSON(w, r, &req) {
		return
	}
	h.service.SetSidebarExpanded(r.Context(), req.Expanded)
	writeJSON(w, http.StatusOK, req)
}
