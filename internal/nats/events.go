package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

const (
	// StreamName is the name of the workspace events stream.
	StreamName = "WORKSPACE_EVENTS"

	// SubjectPrefix is the prefix for all workspace event subjects.
	SubjectPrefix = "workspace"
)

// EventSubject returns the subject an event is published on.
func EventSubject(workspaceID, branchID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, EncodeKey(workspaceID), EncodeKey(branchID), eventType)
}

// WorkspaceFilter returns the filter subject for all events of a workspace.
func WorkspaceFilter(workspaceID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, EncodeKey(workspaceID))
}

// Publisher mirrors engine events onto JetStream. Chunk events are not
// published; consumers rebuild content from message.status events and the
// stored log.
type Publisher struct {
	js     jetstream.JetStream
	logger *logger.Logger
}

// NewPublisher creates an event publisher.
func NewPublisher(js jetstream.JetStream, log *logger.Logger) *Publisher {
	return &Publisher{js: js, logger: logger.OrGlobal(log)}
}

// EnsureStream ensures the events stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Workspace branch and message lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Notify implements engine.Notifier. Publishing is asynchronous.
func (p *Publisher) Notify(event model.Event) {
	if !Published(event.Type) {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	if _, err := p.js.PublishAsync(EventSubject(event.WorkspaceID, event.BranchID, event.Type), data); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("workspace_id", event.WorkspaceID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

// Published reports whether events of this type are mirrored to JetStream.
func Published(t model.EventType) bool {
	return t != model.EventMessageChunk
}
