package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/engine"
	"github.com/capitalize-ai/thinking-workspace/internal/middleware"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/workspace"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

// MessageHandler handles message endpoints. Mutations act on the active branch.
type MessageHandler struct {
	service *workspace.Service
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *workspace.Service, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  logger.OrGlobal(log),
	}
}

// SubmitMessageRequest is the body of POST /messages.
type SubmitMessageRequest struct {
	Content     string             `json:"content"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
	Mode        model.ResponseMode `json:"mode,omitempty"`
}

// ListMessagesResponse is the message log of one branch.
type ListMessagesResponse struct {
	BranchID string          `json:"branchId"`
	Messages []model.Message `json:"messages"`
}

// List handles GET /api/v1/workspaces/{workspaceID}/messages and
// GET /api/v1/workspaces/{workspaceID}/branches/{branchID}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	eng, ok := resolveEngine(w, r, h.service, h.logger)
	if !ok {
		return
	}

	branchID := chi.URLParam(r, "branchID")
	if branchID != "" {
		if err := middleware.ValidateBranchID(branchID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		branchID = eng.ActiveBranch().ID
	}

	msgs, err := eng.Messages(r.Context(), branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListMessagesResponse{BranchID: branchID, Messages: msgs})
}

// Submit handles POST /api/v1/workspaces/{workspaceID}/messages
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	eng, ok := resolveEngine(w, r, h.service, h.logger)
	if !ok {
		return
	}

	var req SubmitMessageRequest
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
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid response mode")
		return
	}

	res, err := eng.Submit(r.Context(), engine.SubmitInput{
		Content:     req.Content,
		Attachments: req.Attachments,
		Mode:        req.Mode,
	})
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			h.logger.Error("failed to submit message", zap.String("workspace_id", eng.WorkspaceID()), zap.Error(err))
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// Stop handles POST /api/v1/workspaces/{workspaceID}/stop
func (h *MessageHandler) Stop(w http.ResponseWriter, r *http.Request) {
	eng, ok := resolveEngine(w, r, h.service, h.logger)
	if !ok {
		return
	}

	msg, stopped := eng.Stop(r.Context())
	if !stopped {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// Regenerate handles POST /api/v1/workspaces/{workspaceID}/messages/{messageID}/regenerate
func (h *MessageHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*engine.Engine).Regenerate)
}

// Retry handles POST /api/v1/workspaces/{workspaceID}/messages/{messageID}/retry
func (h *MessageHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*engine.Engine).Retry)
}

// Pin handles PUT /api/v1/workspaces/{workspaceID}/messages/{messageID}/pin
func (h *MessageHandler) Pin(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*engine.Engine).Pin)
}

// Unpin handles DELETE /api/v1/workspaces/{workspaceID}/messages/{messageID}/pin
func (h *MessageHandler) Unpin(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*engine.Engine).Unpin)
}

// Delete handles DELETE /api/v1/workspaces/{workspaceID}/messages/{messageID}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eng, messageID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := eng.DeleteMessage(r.Context(), messageID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) apply(w http.ResponseWriter, r *http.Request, op func(*engine.Engine, context.Context, string) (model.Message, error)) {
	eng, messageID, ok := h.target(w, r)
	if !ok {
		return
	}

	msg, err := op(eng, r.Context(), messageID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) target(w http.ResponseWriter, r *http.Request) (*engine.Engine, string, bool) {
	messageID := chi.URLParam(r, "messageID")
	if err := middleware.ValidateID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}

	eng, ok := resolveEngine(w, r, h.service, h.logger)
	return eng, messageID, ok
}
