package engine

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/llm"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/store"
	"github.com/capitalize-ai/thinking-workspace/pkg/metrics"
)

// job is a reserved response waiting for provider text.
type job struct {
	resp    *response
	message model.Message
	req     *llm.Request
	ctx     context.Context
}

type responseOption func(*responseOptions)

type responseOptions struct {
	upTo string
}

// withContextUpTo limits the provider context to messages up to and
// including messageID.
func withContextUpTo(messageID string) responseOption {
	return func(o *responseOptions) { o.upTo = messageID }
}

// beginResponseLocked appends an empty streaming assistant message and
// reserves the branch for it.
func (e *Engine) beginResponseLocked(ctx context.Context, log *store.Messages, mode model.ResponseMode, opts ...responseOption) (*job, error) {
	var o responseOptions
	for _, opt := range opts {
		opt(&o)
	}

	history := log.All()
	if o.upTo != "" {
		history, _ = log.Prefix(o.upTo)
	}

	branchID := log.BranchID()
	msg := model.Message{
		ID:           newID(),
		Role:         model.RoleAssistant,
		Timestamp:    e.now(),
		Status:       model.StatusStreaming,
		ResponseMode: mode,
	}
	if err := log.Append(ctx, msg); err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &response{branchID: branchID, messageID: msg.ID, cancelGen: cancel}
	e.responses[branchID] = r

	metrics.RecordMessage(string(model.RoleAssistant))
	metrics.RecordStreamStarted()
	e.emitMessageLocked(model.EventMessageCreated, branchID, msg)

	return &job{
		resp:    r,
		message: msg,
		ctx:     genCtx,
		req: &llm.Request{
			Messages: llm.ToChatMessages(history),
			Mode:     mode,
			WorkMode: e.registry.WorkMode(ctx, branchID),
		},
	}, nil
}

// generate asks the provider for text outside the engine lock, then starts
// the reveal if the reservation still holds.
func (e *Engine) generate(ctx context.Context, j *job) model.Message {
	ctx, span := e.tracer.Start(ctx, "engine.generate")
	defer span.End()

	r := j.resp
	span.SetAttributes(
		attribute.String("branch_id", r.branchID),
		attribute.String("message_id", r.messageID),
	)

	var (
		text string
		err  error
	)
	if e.provider == nil {
		err = ErrNoProvider
	} else {
		text, err = e.provider.Generate(j.ctx, j.req)
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyResponse
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.responses[r.branchID] != r {
		span.AddEvent("response discarded")
		return e.currentLocked(j)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("response generation failed",
			zap.String("branch_id", r.branchID),
			zap.String("message_id", r.messageID),
			zap.Error(err),
		)
		e.releaseLocked(r, metrics.OutcomeError)
		e.setStatusLocked(ctx, e.logLocked(ctx, r.branchID), r.messageID, model.StatusError)
		return e.currentLocked(j)
	}

	r.handle = e.sim.Begin(text,
		func(prefix string) { e.applyChunk(r, prefix) },
		func() { e.finish(r) },
		e.interval,
	)
	e.logger.Debug("response streaming",
		zap.String("branch_id", r.branchID),
		zap.String("message_id", r.messageID),
		zap.Int("length", len(text)),
	)
	return e.currentLocked(j)
}

func (e *Engine) applyChunk(r *response, prefix string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.responses[r.branchID] != r {
		return
	}

	log := e.logs[r.branchID]
	if err := log.UpdateContent(context.Background(), r.messageID, prefix); err != nil {
		e.logger.Warn("chunk rejected", zap.String("message_id", r.messageID), zap.Error(err))
		return
	}
	e.emitLocked(model.Event{
		Type:      model.EventMessageChunk,
		BranchID:  r.branchID,
		MessageID: r.messageID,
		Content:   prefix,
	})
}

func (e *Engine) finish(r *response) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.responses[r.branchID] != r {
		return
	}

	e.releaseLocked(r, metrics.OutcomeComplete)
	e.setStatusLocked(context.Background(), e.logs[r.branchID], r.messageID, model.StatusComplete)
}

// currentLocked returns the latest state of the job's message. A deleted
// branch no longer holds it, so the reservation snapshot is returned.
func (e *Engine) currentLocked(j *job) model.Message {
	if log, ok := e.logs[j.resp.branchID]; ok {
		if msg, ok := log.Get(j.resp.messageID); ok {
			return msg
		}
	}
	return j.message
}
