package security

import (
	"context"

	"github.com/Rrens/zara-ai/internal/persistence"
)

// EncryptedKV seals values before they reach the wrapped KV.
// The key name is bound as additional data, so a value copied under another
// key fails to open.
type EncryptedKV struct {
	next      persistence.KV
	encryptor *Encryptor
}

// NewEncryptedKV wraps next with encryptor
func NewEncryptedKV(next persistence.KV, encryptor *Encryptor) *EncryptedKV {
	return &EncryptedKV{next: next, encryptor: encryptor}
}

func (k *EncryptedKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := k.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return k.encryptor.Decrypt(data, []byte(key))
}

func (k *EncryptedKV) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := k.encryptor.Encrypt(value, []byte(key))
	if err != nil {
		return err
	}
	return k.next.Set(ctx, key, sealed)
}

func (k *EncryptedKV) Remove(ctx context.Context, key string) error {
	return k.next.Remove(ctx, key)
}

// Ping forwards to the wrapped KV when it supports it
func (k *EncryptedKV) Ping(ctx context.Context) error {
	if p, ok := k.next.(persistence.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
