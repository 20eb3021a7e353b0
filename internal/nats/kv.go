package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/thinking-workspace/internal/storage"
)

// DefaultBucket is the KeyValue bucket holding workspace state.
const DefaultBucket = "WORKSPACE_STATE"

// KV is a storage.Adapter backed by a JetStream KeyValue bucket.
type KV struct {
	kv jetstream.KeyValue
}

// EnsureKV opens bucket, creating it when it does not exist.
func EnsureKV(ctx context.Context, js jetstream.JetStream, bucket string) (*KV, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Workspaces, branches and message logs",
			History:     1,
			Storage:     jetstream.FileStorage,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open key-value bucket %s: %w", bucket, err)
	}

	return &KV{kv: kv}, nil
}

// Get implements storage.Adapter.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := k.kv.Get(ctx, EncodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return entry.Value(), nil
}

// Set implements storage.Adapter.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := k.kv.Put(ctx, EncodeKey(key), value); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// Remove implements storage.Adapter.
func (k *KV) Remove(ctx context.Context, key string) error {
	err := k.kv.Delete(ctx, EncodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// Ping implements storage.Pinger.
func (k *KV) Ping(ctx context.Context) error {
	_, err := k.kv.Status(ctx)
	return err
}

// EncodeKey maps a storage key onto the KeyValue key alphabet. Namespace
// separators become dots; any other byte outside [-/_A-Za-z0-9] is escaped
// as =XX so distinct keys never collide.
func EncodeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == ':':
			b.WriteByte('.')
		case c == '-' || c == '/' || c == '_',
			c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}
	return b.String()
}
