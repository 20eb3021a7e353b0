package storage

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
	"github.com/capitalize-ai/thinking-workspace/pkg/metrics"
)

// BestEffort wraps an Adapter with JSON encoding and swallows failures.
// In-memory state stays authoritative; persistence only serves reloads.
type BestEffort struct {
	adapter Adapter
	logger  *logger.Logger
}

// NewBestEffort creates a best-effort JSON store over adapter.
func NewBestEffort(adapter Adapter, log *logger.Logger) *BestEffort {
	return &BestEffort{
		adapter: adapter,
		logger:  logger.OrGlobal(log),
	}
}

// Adapter returns the underlying adapter.
func (b *BestEffort) Adapter() Adapter {
	return b.adapter
}

// Load decodes the value at key into v. It returns false when the key is
// absent, the backend fails, or the blob is malformed; v must then be ignored.
func (b *BestEffort) Load(ctx context.Context, key string, v any) bool {
	data, err := b.adapter.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			b.logger.Warn("storage read failed", zap.String("key", key), zap.Error(err))
			metrics.RecordPersistenceError("get")
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		b.logger.Warn("discarding malformed persisted data", zap.String("key", key), zap.Error(err))
		metrics.RecordPersistenceError("decode")
		return false
	}

	return true
}

// Save encodes v and writes it at key. It reports whether the write succeeded.
func (b *BestEffort) Save(ctx context.Context, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("failed to encode value", zap.String("key", key), zap.Error(err))
		metrics.RecordPersistenceError("encode")
		return false
	}

	if err := b.adapter.Set(ctx, key, data); err != nil {
		b.logger.Warn("storage write failed", zap.String("key", key), zap.Error(err))
		metrics.RecordPersistenceError("set")
		return false
	}

	return true
}

// Delete removes key. Missing keys are not an error.
func (b *BestEffort) Delete(ctx context.Context, key string) bool {
	if err := b.adapter.Remove(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		b.logger.Warn("storage remove failed", zap.String("key", key), zap.Error(err))
		metrics.RecordPersistenceError("remove")
		return false
	}
	return true
}
