package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/engine"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/workspace"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
	"github.com/capitalize-ai/thinking-workspace/pkg/metrics"
)

const (
	// DefaultHeartbeatInterval is how often idle SSE connections are pinged.
	DefaultHeartbeatInterval = 30 * time.Second
	subscriberBuffer         = 256
)

// StreamHandler serves workspace events over SSE.
type StreamHandler struct {
	service   *workspace.Service
	hub       *engine.Hub
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(svc *workspace.Service, hub *engine.Hub, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service:   svc,
		hub:       hub,
		logger:    logger.OrGlobal(log),
		heartbeat: DefaultHeartbeatInterval,
	}
}

// SnapshotEvent is the first event of a stream: the state a client renders
// before applying live events.
type SnapshotEvent struct {
	WorkspaceID    string          `json:"workspaceId"`
	ActiveBranchID string          `json:"activeBranchId"`
	Branches       []model.Branch  `json:"branches"`
	Messages       []model.Message `json:"messages"`
	Streaming      bool            `json:"streaming"`
}

// Stream handles GET /api/v1/workspaces/{workspaceID}/events
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eng, ok := resolveEngine(w, r, h.service, h.logger)
	if !ok {
		return
	}
	workspaceID := eng.WorkspaceID()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before the snapshot so no event falls between the two.
	events, unsubscribe := h.hub.Subscribe(workspaceID, subscriberBuffer)
	defer unsubscribe()

	msgs, err := eng.Messages(ctx, "")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "snapshot", SnapshotEvent{
		WorkspaceID:    workspaceID,
		ActiveBranchID: eng.ActiveBranch().ID,
		Branches:       eng.Branches(),
		Messages:       msgs,
		Streaming:      eng.IsStreaming(),
	})

	h.logger.Info("SSE client connected", zap.String("workspace_id", workspaceID))

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", zap.String("workspace_id", workspaceID))
			return

		case event, open := <-events:
			if !open {
				return
			}
			if err := sendSSEEvent(w, flusher, string(event.Type), event); err != nil {
				h.logger.Warn("failed to write SSE event", zap.Error(err))
				return
			}

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now().UTC(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
