// Package persistence stores JSON-serializable state under string keys.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by a KV when the key does not exist
var ErrNotFound = errors.New("key not found")

// KV is a durable byte store. Implementations may block; callers pass a context.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// Adapter handles JSON (de)serialization over a KV
type Adapter struct {
	kv     KV
	logger zerolog.Logger
}

// NewAdapter creates a new persistence adapter
func NewAdapter(kv KV) *Adapter {
	return &Adapter{kv: kv, logger: log.Logger}
}

// WithLogger returns a copy of the adapter that logs to l
func (a *Adapter) WithLogger(l zerolog.Logger) *Adapter {
	return &Adapter{kv: a.kv, logger: l}
}

// Load decodes the value stored at key into v.
// Missing keys, read failures and corrupt JSON all report false; v is left
// untouched in that case. Nothing is returned to the caller as an error.
func (a *Adapter) Load(ctx context.Context, key string, v any) bool {
	data, err := a.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Warn().Err(err).Str("key", key).Msg("failed to read persisted state")
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("persisted state is corrupt, treating as empty")
		return false
	}
	return true
}

// Save encodes v as JSON and writes it at key
func (a *Adapter) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := a.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.kv.Remove(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Ping checks the backend when it supports it
func (a *Adapter) Ping(ctx context.Context) error {
	if p, ok := a.kv.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
