package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Disk stores each key as a JSON file under a data directory.
type Disk struct {
	dataDir string
	mu      sync.RWMutex
}

// NewDisk creates the data directory if needed and returns a disk adapter.
func NewDisk(dataDir string) (*Disk, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Disk{dataDir: dataDir}, nil
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.dataDir, url.QueryEscape(key)+".json")
}

// Get implements Adapter.
func (d *Disk) Get(ctx context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return data, nil
}

// Set implements Adapter. Writes go to a temp file first and are renamed
// into place so a crash never leaves a half-written value.
func (d *Disk) Set(ctx context.Context, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.path(key)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, value, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Remove implements Adapter.
func (d *Disk) Remove(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Ping implements Pinger.
func (d *Disk) Ping(ctx context.Context) error {
	if _, err := os.Stat(d.dataDir); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
