// Package file stores each key as a JSON document in a local directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Rrens/zara-ai/internal/persistence"
)

// KV implements persistence.KV on the local filesystem
type KV struct {
	dir string
}

// NewKV creates the data directory if needed and returns a KV rooted at it
func NewKV(dir string) (*KV, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &KV{dir: dir}, nil
}

// path maps a key to a file name; keys are escaped so they cannot leave dir
func (k *KV) path(key string) string {
	return filepath.Join(k.dir, url.PathEscape(key)+".json")
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(k.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set writes through a temp file and rename so a crash never leaves a torn value
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(k.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, k.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (k *KV) Remove(ctx context.Context, key string) error {
	err := os.Remove(k.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Ping verifies the data directory is still reachable
func (k *KV) Ping(ctx context.Context) error {
	_, err := os.Stat(k.dir)
	return err
}
