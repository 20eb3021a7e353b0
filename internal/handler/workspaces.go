// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/engine"
	"github.com/capitalize-ai/thinking-workspace/internal/middleware"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/workspace"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

// WorkspaceHandler handles workspace endpoints.
type WorkspaceHandler struct {
	service *workspace.Service
	logger  *logger.Logger
}

// NewWorkspaceHandler creates a new workspace handler.
func NewWorkspaceHandler(svc *workspace.Service, log *logger.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		service: svc,
		logger:  logger.OrGlobal(log),
	}
}

// ListWorkspacesResponse is the response of GET /workspaces.
type ListWorkspacesResponse struct {
	Workspaces []model.Workspace `json:"workspaces"`
	Total      int               `json:"total"`
}

// List handles GET /api/v1/workspaces
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.service.List(r.Context())
	writeJSON(w, http.StatusOK, ListWorkspacesResponse{Workspaces: list, Total: len(list)})
}

// Create handles POST /api/v1/workspaces
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateTags(req.Tags); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ws)
}

// WorkspaceDetail is a workspace with its branch topology.
type WorkspaceDetail struct {
	model.Workspace
	ActiveBranchID string         `json:"activeBranchId"`
	Branches       []model.Branch `json:"branches"`
	Streaming      bool           `json:"streaming"`
}

// Get handles GET /api/v1/workspaces/{workspaceID}
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eng, ok := resolveEngine(w, r, h.service, h.logger)
	if !ok {
		return
	}
	ws, err := h.service.Get(ctx, eng.WorkspaceID())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, WorkspaceDetail{
		Workspace:      ws,
		ActiveBranchID: eng.ActiveBranch().ID,
		Branches:       eng.Branches(),
		Streaming:      eng.IsStreaming(),
	})
}

// Update handles PATCH /api/v1/workspaces/{workspaceID}
func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workspaceID")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateTags(req.Tags); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ws)
}

// Delete handles DELETE /api/v1/workspaces/{workspaceID}
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workspaceID")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolveEngine opens the engine of the workspace named in the URL.
func resolveEngine(w http.ResponseWriter, r *http.Request, svc *workspace.Service, log *logger.Logger) (*engine.Engine, bool) {
	id := chi.URLParam(r, "workspaceID")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	eng, err := svc.Engine(r.Context(), id)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			log.Error("failed to open workspace", zap.String("workspace_id", id), zap.Error(err))
		}
		writeDomainError(w, err)
		return nil, false
	}
	return eng, true
}
