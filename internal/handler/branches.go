package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/thinking-workspace/internal/engine"
	"github.com/capitalize-ai/thinking-workspace/internal/middleware"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/workspace"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

// BranchHandler handles branch endpoints.
type BranchHandler struct {
	service *workspace.Service
	logger  *logger.Logger
}

// NewBranchHandler creates a new branch handler.
func NewBranchHandler(svc *workspace.Service, log *logger.Logger) *BranchHandler {
	return &BranchHandler{
		service: svc,
		logger:  logger.OrGlobal(log),
	}
}

// ListBranchesResponse is the branch topology of a workspace.
type ListBranchesResponse struct {
	ActiveBranchID string         `json:"activeBranchId"`
	Branches       []model.Branch `json:"branches"`
}

// ForkRequest is the body of POST /branches.
type ForkRequest struct {
	MessageID string `json:"messageId"`
	Name      string `json:"name,omitempty"`
}

// RenameRequest is the body of PATCH /branches/{branchID}.
type RenameRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/v1/workspaces/{workspaceID}/branches
func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	eng, ok := resolveEngine(w, r, h.service, h.logger)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, ListBranchesResponse{
		ActiveBranchID: eng.ActiveBranch().ID,
		Branches:       eng.Branches(),
	})
}

// Fork handles POST /api/v1/workspaces/{workspaceID}/branches
func (h *BranchHandler) Fork(w http.ResponseWriter, r *http.Request) {
	eng, ok := resolveEngine(w, r, h.service, h.logger)
	if !ok {
		return
	}

	var req ForkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateID(req.MessageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateBranchName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := eng.Fork(r.Context(), req.MessageID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// Rename handles PATCH /api/v1/workspaces/{workspaceID}/branches/{branchID}
func (h *BranchHandler) Rename(w http.ResponseWriter, r *http.Request) {
	eng, branchID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateBranchName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := eng.RenameBranch(r.Context(), branchID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Delete handles DELETE /api/v1/workspaces/{workspaceID}/branches/{branchID}
func (h *BranchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eng, branchID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := eng.DeleteBranch(r.Context(), branchID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /api/v1/workspaces/{workspaceID}/branches/{branchID}/activate
func (h *BranchHandler) Activate(w http.ResponseWriter, r *http.Request) {
	eng, branchID, ok := h.target(w, r)
	if !ok {
		return
	}

	b, err := eng.SwitchBranch(r.Context(), branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Ancestors handles GET /api/v1/workspaces/{workspaceID}/branches/{branchID}/ancestors
func (h *BranchHandler) Ancestors(w http.ResponseWriter, r *http.Request) {
	eng, branchID, ok := h.target(w, r)
	if !ok {
		return
	}

	chain, err := eng.Ancestors(branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"branches": chain,
	})
}

// GetMetadata handles GET /api/v1/workspaces/{workspaceID}/branches/{branchID}/metadata
func (h *BranchHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	eng, branchID, ok := h.target(w, r)
	if !ok {
		return
	}

	meta, err := eng.Metadata(r.Context(), branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// PutMetadata handles PUT /api/v1/workspaces/{workspaceID}/branches/{branchID}/metadata
func (h *BranchHandler) PutMetadata(w http.ResponseWriter, r *http.Request) {
	eng, branchID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req model.BranchMetadata
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.WorkMode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid work mode")
		return
	}

	meta, err := eng.SetWorkMode(r.Context(), branchID, req.WorkMode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *BranchHandler) target(w http.ResponseWriter, r *http.Request) (*engine.Engine, string, bool) {
	branchID := chi.URLParam(r, "branchID")
	if err := middleware.ValidateBranchID(branchID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}

	eng, ok := resolveEngine(w, r, h.service, h.logger)
	return eng, branchID, ok
}
