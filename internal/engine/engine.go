// Package engine orchestrates messages, branches and streaming responses
// for one workspace.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/branch"
	"github.com/capitalize-ai/thinking-workspace/internal/llm"
	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/internal/storage"
	"github.com/capitalize-ai/thinking-workspace/internal/store"
	"github.com/capitalize-ai/thinking-workspace/internal/stream"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
	"github.com/capitalize-ai/thinking-workspace/pkg/metrics"
	"github.com/capitalize-ai/thinking-workspace/pkg/tracing"
)

var (
	// ErrEmptyContent is returned when submitting blank content.
	ErrEmptyContent = errors.New("message content cannot be empty")
	// ErrStreamActive is returned when the branch already has a response in flight.
	ErrStreamActive = errors.New("a response is already streaming on this branch")
	// ErrInvalidForkTarget is returned when forking at a message the branch does not hold.
	ErrInvalidForkTarget = errors.New("fork target message not found")
	// ErrNotAssistant is returned when regenerating a message that is not an assistant reply.
	ErrNotAssistant = errors.New("message is not an assistant message")
	// ErrNotFailed is returned when retrying a message that did not fail.
	ErrNotFailed = errors.New("message did not fail")
	// ErrNoUserMessage is returned when no user message precedes the target.
	ErrNoUserMessage = errors.New("no user message precedes the target")
	// ErrNoProvider is recorded on a message when no response provider is configured.
	ErrNoProvider = errors.New("no response provider configured")
)

// DefaultTickInterval is the reveal interval when none is configured.
const DefaultTickInterval = 15 * time.Millisecond

// Config configures an Engine.
type Config struct {
	WorkspaceID  string
	Store        *storage.BestEffort
	Provider     llm.Provider
	Scheduler    stream.Scheduler
	TickInterval time.Duration
	Notifier     Notifier
	Logger       *logger.Logger
	Now          func() time.Time
}

// SubmitInput is a user message to send on the active branch.
type SubmitInput struct {
	Content     string
	Attachments []model.Attachment
	Mode        model.ResponseMode
}

// SubmitResult holds the messages created by a submit.
type SubmitResult struct {
	User      model.Message `json:"user"`
	Assistant model.Message `json:"assistant"`
}

// response tracks the assistant message a branch is producing. Its
// identity is the reservation: callbacks holding a stale pointer are ignored.
type response struct {
	branchID  string
	messageID string
	cancelGen context.CancelFunc
	handle    *stream.Handle
}

// Engine is the branching conversation state machine of one workspace.
// All state is guarded by one mutex; simulator ticks re-enter through it.
type Engine struct {
	mu sync.Mutex

	workspaceID string
	store       *storage.BestEffort
	provider    llm.Provider
	sim         *stream.Simulator
	interval    time.Duration
	notifier    Notifier
	logger      *logger.Logger
	tracer      trace.Tracer
	now         func() time.Time

	registry  *branch.Registry
	logs      map[string]*store.Messages
	responses map[string]*response
}

// New creates an engine. Call Open before use.
func New(cfg Config) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Now == nil {
		cfg.Now = utcNow
	}
	if cfg.Store == nil {
		cfg.Store = storage.NewBestEffort(storage.NewMemory(), cfg.Logger)
	}

	return &Engine{
		workspaceID: cfg.WorkspaceID,
		store:       cfg.Store,
		provider:    cfg.Provider,
		sim:         stream.NewSimulator(cfg.Scheduler),
		interval:    cfg.TickInterval,
		notifier:    cfg.Notifier,
		logger:      logger.OrGlobal(cfg.Logger).WithWorkspace(cfg.WorkspaceID, ""),
		tracer:      tracing.Tracer("engine"),
		now:         cfg.Now,
		registry:    branch.NewRegistry(cfg.Store, cfg.WorkspaceID).WithClock(cfg.Now),
		logs:        make(map[string]*store.Messages),
		responses:   make(map[string]*response),
	}
}

// WorkspaceID returns the workspace this engine serves.
func (e *Engine) WorkspaceID() string {
	return e.workspaceID
}

// Open loads the branch registry and the active branch. Messages left
// streaming by an earlier session are frozen.
func (e *Engine) Open(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.responses {
		e.releaseLocked(r, metrics.OutcomeAbandoned)
	}
	e.registry.Load(ctx)
	e.logs = make(map[string]*store.Messages)
	e.recoverLocked(ctx, e.logLocked(ctx, e.registry.Active().ID))
}

// Close abandons every in-flight response.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.responses {
		e.releaseLocked(r, metrics.OutcomeAbandoned)
	}
}

// Submit appends a user message to the active branch and streams an
// assistant response to it. Provider failures are reported on the returned
// assistant message, not as an error.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Submit")
	defer span.End()

	if isBlank(in.Content) {
		return SubmitResult{}, ErrEmptyContent
	}
	if !in.Mode.Valid() {
		return SubmitResult{}, fmt.Errorf("invalid response mode %q", in.Mode)
	}

	e.mu.Lock()
	branchID := e.registry.Active().ID
	span.SetAttributes(attribute.String("branch_id", branchID))

	log := e.logLocked(ctx, branchID)
	if err := e.ensureIdleLocked(ctx, log); err != nil {
		e.mu.Unlock()
		return SubmitResult{}, err
	}

	user := model.Message{
		ID:           newID(),
		Role:         model.RoleUser,
		Content:      in.Content,
		Timestamp:    e.now(),
		Status:       model.StatusComplete,
		ResponseMode: in.Mode,
		Attachments:  in.Attachments,
	}
	if err := log.Append(ctx, user); err != nil {
		e.mu.Unlock()
		return SubmitResult{}, err
	}
	metrics.RecordMessage(string(model.RoleUser))
	e.emitMessageLocked(model.EventMessageCreated, branchID, user)

	job, err := e.beginResponseLocked(ctx, log, in.Mode)
	e.mu.Unlock()
	if err != nil {
		return SubmitResult{User: user.Clone()}, err
	}

	return SubmitResult{User: user.Clone(), Assistant: e.generate(ctx, job)}, nil
}

// Stop freezes the in-flight response of the active branch with whatever
// content it has revealed. It reports false when nothing was streaming.
func (e *Engine) Stop(ctx context.Context) (model.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	branchID := e.registry.Active().ID
	r, ok := e.responses[branchID]
	if !ok {
		return model.Message{}, false
	}

	e.releaseLocked(r, metrics.OutcomeStopped)
	log := e.logLocked(ctx, branchID)
	e.setStatusLocked(ctx, log, r.messageID, model.StatusComplete)

	msg, _ := log.Get(r.messageID)
	e.logger.Info("response stopped",
		zap.String("branch_id", branchID),
		zap.String("message_id", r.messageID),
		zap.Int("revealed", len(msg.Content)),
	)
	return msg, true
}

// Regenerate discards an assistant message and streams a fresh response for
// the user message that precedes it.
func (e *Engine) Regenerate(ctx context.Context, messageID string) (model.Message, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Regenerate")
	defer span.End()

	return e.replace(ctx, messageID, false)
}

// Retry replaces a failed assistant message with a fresh response. The user
// message it answered is reused, not duplicated.
func (e *Engine) Retry(ctx context.Context, messageID string) (model.Message, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Retry")
	defer span.End()

	return e.replace(ctx, messageID, true)
}

func (e *Engine) replace(ctx context.Context, messageID string, failedOnly bool) (model.Message, error) {
	e.mu.Lock()
	branchID := e.registry.Active().ID
	log := e.logLocked(ctx, branchID)

	if err := e.ensureIdleLocked(ctx, log); err != nil {
		e.mu.Unlock()
		return model.Message{}, err
	}

	target, ok := log.Get(messageID)
	if !ok {
		e.mu.Unlock()
		return model.Message{}, fmt.Errorf("%w: %s", store.ErrMessageNotFound, messageID)
	}
	if target.Role != model.RoleAssistant {
		e.mu.Unlock()
		return model.Message{}, ErrNotAssistant
	}
	if failedOnly && target.Status != model.StatusError {
		e.mu.Unlock()
		return model.Message{}, ErrNotFailed
	}

	history, _ := log.Prefix(messageID)
	user, ok := lastUser(history[:len(history)-1])
	if !ok {
		e.mu.Unlock()
		return model.Message{}, ErrNoUserMessage
	}

	if err := log.Remove(ctx, messageID); err != nil {
		e.mu.Unlock()
		return model.Message{}, err
	}
	e.emitLocked(model.Event{Type: model.EventMessageRemoved, BranchID: branchID, MessageID: messageID})

	job, err := e.beginResponseLocked(ctx, log, user.ResponseMode, withContextUpTo(user.ID))
	e.mu.Unlock()
	if err != nil {
		return model.Message{}, err
	}

	return e.generate(ctx, job), nil
}

// Fork copies the active branch up to and including atMessageID into a new
// branch and makes it active.
func (e *Engine) Fork(ctx context.Context, atMessageID, name string) (model.Branch, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Fork")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	parent := e.registry.Active()
	prefix, ok := e.logLocked(ctx, parent.ID).Prefix(atMessageID)
	if !ok {
		return model.Branch{}, fmt.Errorf("%w: %s", ErrInvalidForkTarget, atMessageID)
	}

	if isBlank(name) {
		name = fmt.Sprintf("Branch %d", e.registry.Len())
	}
	created, err := e.registry.Create(ctx, name, parent.ID, atMessageID)
	if err != nil {
		return model.Branch{}, err
	}

	for i := range prefix {
		if !prefix[i].Status.Terminal() {
			prefix[i].Status = model.StatusComplete
		}
	}
	log := store.New(e.store, e.workspaceID, created.ID)
	log.Replace(ctx, prefix)
	e.logs[created.ID] = log

	if _, err := e.registry.SetWorkMode(ctx, created.ID, e.registry.WorkMode(ctx, parent.ID)); err != nil {
		e.logger.Warn("failed to copy work mode", zap.Error(err))
	}

	metrics.RecordFork()
	e.logger.Info("branch forked",
		zap.String("parent_branch_id", parent.ID),
		zap.String("branch_id", created.ID),
		zap.String("fork_message_id", atMessageID),
		zap.Int("messages", len(prefix)),
	)
	e.emitLocked(model.Event{Type: model.EventBranchCreated, BranchID: created.ID, Branch: &created})

	if err := e.switchLocked(ctx, created.ID); err != nil {
		return model.Branch{}, err
	}

	created, _ = e.registry.Get(created.ID)
	return created, nil
}

// SwitchBranch activates another branch. A response streaming on the branch
// being left is abandoned; its partial content stays persisted and is frozen
// when that branch is entered again.
func (e *Engine) SwitchBranch(ctx context.Context, branchID string) (model.Branch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.registry.Get(branchID); !ok {
		return model.Branch{}, fmt.Errorf("%w: %s", branch.ErrBranchNotFound, branchID)
	}
	if e.registry.Active().ID != branchID {
		if err := e.switchLocked(ctx, branchID); err != nil {
			return model.Branch{}, err
		}
	}
	return e.registry.Active(), nil
}

// RenameBranch changes a branch's display name.
func (e *Engine) RenameBranch(ctx context.Context, branchID, name string) (model.Branch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.registry.Rename(ctx, branchID, name)
	if err != nil {
		return model.Branch{}, err
	}
	e.emitLocked(model.Event{Type: model.EventBranchRenamed, BranchID: b.ID, Branch: &b})
	return b, nil
}

// DeleteBranch removes a branch with its messages and metadata. Child
// branches are left with a dangling parent.
func (e *Engine) DeleteBranch(ctx context.Context, branchID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasActive := e.registry.Active().ID == branchID
	if err := e.registry.Delete(ctx, branchID); err != nil {
		return err
	}

	if r, ok := e.responses[branchID]; ok {
		e.releaseLocked(r, metrics.OutcomeAbandoned)
	}
	e.logLocked(ctx, branchID).Drop(ctx)
	delete(e.logs, branchID)
	e.registry.DropMetadata(ctx, branchID)

	e.logger.Info("branch deleted", zap.String("branch_id", branchID))
	e.emitLocked(model.Event{Type: model.EventBranchDeleted, BranchID: branchID})

	if wasActive {
		active := e.registry.Active()
		e.recoverLocked(ctx, e.logLocked(ctx, active.ID))
		e.emitLocked(model.Event{Type: model.EventBranchSwitched, BranchID: active.ID, Branch: &active})
	}
	return nil
}

// Pin marks a message as pinned.
func (e *Engine) Pin(ctx context.Context, messageID string) (model.Message, error) {
	return e.setPinned(ctx, messageID, true)
}

// Unpin clears a message's pin.
func (e *Engine) Unpin(ctx context.Context, messageID string) (model.Message, error) {
	return e.setPinned(ctx, messageID, false)
}

func (e *Engine) setPinned(ctx context.Context, messageID string, pinned bool) (model.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	branchID := e.registry.Active().ID
	log := e.logLocked(ctx, branchID)
	if err := log.SetPinned(ctx, messageID, pinned); err != nil {
		return model.Message{}, err
	}

	msg, _ := log.Get(messageID)
	e.emitMessageLocked(model.EventMessagePinned, branchID, msg)
	return msg, nil
}

// DeleteMessage removes one message from the active branch. The message
// currently being produced cannot be deleted.
func (e *Engine) DeleteMessage(ctx context.Context, messageID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	branchID := e.registry.Active().ID
	if r, ok := e.responses[branchID]; ok && r.messageID == messageID {
		return ErrStreamActive
	}
	if err := e.logLocked(ctx, branchID).Remove(ctx, messageID); err != nil {
		return err
	}
	e.emitLocked(model.Event{Type: model.EventMessageRemoved, BranchID: branchID, MessageID: messageID})
	return nil
}

// Branches returns every branch in creation order.
func (e *Engine) Branches() []model.Branch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.All()
}

// BranchCount returns the number of branches.
func (e *Engine) BranchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len()
}

// ActiveBranch returns the active branch.
func (e *Engine) ActiveBranch() model.Branch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Active()
}

// Messages returns the messages of a branch; an empty id means the active branch.
func (e *Engine) Messages(ctx context.Context, branchID string) ([]model.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if branchID == "" {
		branchID = e.registry.Active().ID
	}
	if _, ok := e.registry.Get(branchID); !ok {
		return nil, fmt.Errorf("%w: %s", branch.ErrBranchNotFound, branchID)
	}
	return e.logLocked(ctx, branchID).All(), nil
}

// Ancestors returns the branch and its ancestors, root first.
func (e *Engine) Ancestors(branchID string) ([]model.Branch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.registry.Get(branchID); !ok {
		return nil, fmt.Errorf("%w: %s", branch.ErrBranchNotFound, branchID)
	}
	return e.registry.AncestorChain(branchID), nil
}

// Metadata returns a branch's metadata.
func (e *Engine) Metadata(ctx context.Context, branchID string) (model.BranchMetadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.registry.Get(branchID); !ok {
		return model.BranchMetadata{}, fmt.Errorf("%w: %s", branch.ErrBranchNotFound, branchID)
	}
	return e.registry.Metadata(ctx, branchID), nil
}

// SetWorkMode stores a branch's work mode.
func (e *Engine) SetWorkMode(ctx context.Context, branchID string, mode model.WorkMode) (model.BranchMetadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.SetWorkMode(ctx, branchID, mode)
}

// IsStreaming reports whether the active branch has a response in flight.
func (e *Engine) IsStreaming() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.responses[e.registry.Active().ID]
	return ok
}

func (e *Engine) logLocked(ctx context.Context, branchID string) *store.Messages {
	log, ok := e.logs[branchID]
	if !ok {
		log = store.New(e.store, e.workspaceID, branchID)
		log.Load(ctx)
		e.logs[branchID] = log
	}
	return log
}

// ensureIdleLocked rejects work while the branch has a response in flight
// and freezes any message left streaming without one.
func (e *Engine) ensureIdleLocked(ctx context.Context, log *store.Messages) error {
	if _, busy := e.responses[log.BranchID()]; busy {
		return ErrStreamActive
	}
	e.recoverLocked(ctx, log)
	return nil
}

// recoverLocked freezes messages whose stream did not survive. Revealed
// content is kept as complete; an assistant message with nothing revealed
// is marked as failed so it can be retried.
func (e *Engine) recoverLocked(ctx context.Context, log *store.Messages) {
	if _, busy := e.responses[log.BranchID()]; busy {
		return
	}
	for _, m := range log.All() {
		if m.Status.Terminal() {
			continue
		}
		status := model.StatusComplete
		if m.Role == model.RoleAssistant && m.Content == "" {
			status = model.StatusError
		}
		e.logger.Info("recovering interrupted message",
			zap.String("branch_id", log.BranchID()),
			zap.String("message_id", m.ID),
			zap.String("status", string(status)),
		)
		e.setStatusLocked(ctx, log, m.ID, status)
	}
}

func (e *Engine) switchLocked(ctx context.Context, branchID string) error {
	prev := e.registry.Active().ID
	if r, ok := e.responses[prev]; ok {
		e.releaseLocked(r, metrics.OutcomeAbandoned)
		e.logger.Info("response abandoned by branch switch",
			zap.String("branch_id", prev),
			zap.String("message_id", r.messageID),
		)
	}

	if err := e.registry.SetActive(ctx, branchID); err != nil {
		return err
	}
	e.recoverLocked(ctx, e.logLocked(ctx, branchID))

	active := e.registry.Active()
	e.emitLocked(model.Event{Type: model.EventBranchSwitched, BranchID: active.ID, Branch: &active})
	return nil
}

func (e *Engine) releaseLocked(r *response, outcome string) {
	if r.handle != nil {
		r.handle.Cancel()
	}
	if r.cancelGen != nil {
		r.cancelGen()
	}
	if e.responses[r.branchID] == r {
		delete(e.responses, r.branchID)
		metrics.RecordStreamFinished(outcome)
	}
}

func (e *Engine) setStatusLocked(ctx context.Context, log *store.Messages, messageID string, status model.Status) {
	if err := log.SetStatus(ctx, messageID, status); err != nil {
		e.logger.Warn("status change rejected",
			zap.String("message_id", messageID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	e.emitLocked(model.Event{
		Type:      model.EventMessageStatus,
		BranchID:  log.BranchID(),
		MessageID: messageID,
		Status:    status,
	})
}

func (e *Engine) emitMessageLocked(typ model.EventType, branchID string, msg model.Message) {
	e.emitLocked(model.Event{Type: typ, BranchID: branchID, MessageID: msg.ID, Message: &msg})
}

func (e *Engine) emitLocked(event model.Event) {
	event.WorkspaceID = e.workspaceID
	event.At = e.now()
	e.notifier.Notify(event)
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func lastUser(msgs []model.Message) (model.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			return msgs[i], true
		}
	}
	return model.Message{}, false
}
