package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/thinking-workspace/internal/branch"
	"github.com/capitalize-ai/thinking-workspace/internal/engine"
	"github.com/capitalize-ai/thinking-workspace/internal/store"
	"github.com/capitalize-ai/thinking-workspace/internal/workspace"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, workspace.ErrWorkspaceNotFound),
		errors.Is(err, branch.ErrBranchNotFound),
		errors.Is(err, store.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrStreamActive),
		errors.Is(err, branch.ErrRootBranch),
		errors.Is(err, engine.ErrNotFailed),
		errors.Is(err, store.ErrStreamInProgress):
		return http.StatusConflict
	case errors.Is(err, engine.ErrEmptyContent),
		errors.Is(err, engine.ErrInvalidForkTarget),
		errors.Is(err, engine.ErrNotAssistant),
		errors.Is(err, engine.ErrNoUserMessage),
		errors.Is(err, branch.ErrEmptyName),
		errors.Is(err, workspace.ErrEmptyTitle),
		errors.Is(err, workspace.ErrEmptyPrompt):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
