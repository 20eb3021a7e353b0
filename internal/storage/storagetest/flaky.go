// Package storagetest provides adapters for exercising storage failure paths.
package storagetest

import (
	"context"
	"sync"

	"github.com/capitalize-ai/thinking-workspace/internal/storage"
)

// Flaky wraps an adapter and fails operations while toggled off.
type Flaky struct {
	storage.Adapter

	mu        sync.Mutex
	failGets  bool
	failSets  bool
	setCalls  int
	failedSet int
}

// NewFlaky wraps inner, which defaults to a fresh memory adapter when nil.
func NewFlaky(inner storage.Adapter) *Flaky {
	if inner == nil {
		inner = storage.NewMemory()
	}
	return &Flaky{Adapter: inner}
}

// FailWrites makes Set and Remove return storage.ErrUnavailable.
func (f *Flaky) FailWrites(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSets = fail
}

// FailReads makes Get return storage.ErrUnavailable.
func (f *Flaky) FailReads(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGets = fail
}

// SetCalls returns how many Set calls were attempted and how many failed.
func (f *Flaky) SetCalls() (total, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls, f.failedSet
}

// Get implements storage.Adapter.
func (f *Flaky) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGets
	f.mu.Unlock()
	if fail {
		return nil, storage.ErrUnavailable
	}
	return f.Adapter.Get(ctx, key)
}

// Set implements storage.Adapter.
func (f *Flaky) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.setCalls++
	fail := f.failSets
	if fail {
		f.failedSet++
	}
	f.mu.Unlock()
	if fail {
		return storage.ErrUnavailable
	}
	return f.Adapter.Set(ctx, key, value)
}

// Remove implements storage.Adapter.
func (f *Flaky) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failSets
	f.mu.Unlock()
	if fail {
		return storage.ErrUnavailable
	}
	return f.Adapter.Remove(ctx, key)
}
