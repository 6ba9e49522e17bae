package security_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/Rrens/zara-ai/internal/persistence"
	"github.com/Rrens/zara-ai/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptor_EncryptDecrypt(t *testing.T) {
	encryptor, err := security.NewEncryptor(testKey())
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"json", `[{"id":"1","title":"Hi","messages":[]}]`},
		{"unicode", "unicode: 日本語 中文 한국어 🎉"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := encryptor.Encrypt([]byte(tt.plaintext), []byte("k"))
			require.NoError(t, err)

			decrypted, err := encryptor.Decrypt(ciphertext, []byte("k"))
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(decrypted))
		})
	}
}

func TestEncryptor_DifferentCiphertexts(t *testing.T) {
	encryptor, err := security.NewEncryptor(testKey())
	require.NoError(t, err)

	a, err := encryptor.Encrypt([]byte("same"), nil)
	require.NoError(t, err)
	b, err := encryptor.Encrypt([]byte("same"), nil)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(a, b), "nonce should make ciphertexts differ")
}

func TestEncryptor_WrongAAD(t *testing.T) {
	encryptor, err := security.NewEncryptor(testKey())
	require.NoError(t, err)

	sealed, err := encryptor.Encrypt([]byte("secret"), []byte("sessions"))
	require.NoError(t, err)

	_, err = encryptor.Decrypt(sealed, []byte("other"))
	assert.Error(t, err)
}

func TestNewEncryptor_InvalidKeyLength(t *testing.T) {
	for _, n := range []int{0, 8, 15, 33} {
		_, err := security.NewEncryptor(make([]byte, n))
		assert.Error(t, err, "key length %d", n)
	}
}

func TestNewEncryptorFromPassphrase(t *testing.T) {
	a, err := security.NewEncryptorFromPassphrase("correct horse")
	require.NoError(t, err)
	b, err := security.NewEncryptorFromPassphrase("correct horse")
	require.NoError(t, err)

	sealed, err := a.Encrypt([]byte("hello"), nil)
	require.NoError(t, err)
	opened, err := b.Decrypt(sealed, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(opened))

	_, err = security.NewEncryptorFromPassphrase("")
	assert.Error(t, err)
}

func TestEncryptedKV(t *testing.T) {
	ctx := context.Background()
	encryptor, err := security.NewEncryptor(testKey())
	require.NoError(t, err)

	raw := persistence.NewMemoryKV()
	kv := security.NewEncryptedKV(raw, encryptor)

	require.NoError(t, kv.Set(ctx, "sessions", []byte(`["plain"]`)))

	stored, err := raw.Get(ctx, "sessions")
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "plain")

	got, err := kv.Get(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, `["plain"]`, string(got))

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}
