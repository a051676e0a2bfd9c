package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()

	enc, err := NewEncryptor("encryption-secret", "salt")
	require.NoError(t, err)
	return enc
}

func TestNewEncryptor_RequiresSecret(t *testing.T) {
	_, err := NewEncryptor("", "salt")
	assert.Error(t, err)
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)

	inputs := [][]byte{
		{},
		[]byte("a"),
		[]byte("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJhbGljZSJ9.sig"),
		{0x00, 0xff, 0x10, 0x80},
		bytes.Repeat([]byte{0xab}, 4096),
	}

	for _, in := range inputs {
		ciphertext, err := enc.Encrypt(in)
		require.NoError(t, err)
		assert.NotEqual(t, in, ciphertext)

		out, err := enc.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, in, out)

		decoded, err := enc.Decode(enc.Encode(in))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(in, decoded))
	}
}

func TestEncryptor_EncryptIsRandomized(t *testing.T) {
	enc := newTestEncryptor(t)

	first, err := enc.Encrypt([]byte("token"))
	require.NoError(t, err)
	second, err := enc.Encrypt([]byte("token"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEncryptor_SealOpen(t *testing.T) {
	enc := newTestEncryptor(t)

	sealed, err := enc.Seal("verification-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "+")
	assert.NotContains(t, sealed, "/")
	assert.NotContains(t, sealed, "=")

	opened, err := enc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "verification-token", opened)
}

func TestEncryptor_SameKeyAcrossInstances(t *testing.T) {
	sealed, err := newTestEncryptor(t).Seal("token")
	require.NoError(t, err)

	opened, err := newTestEncryptor(t).Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", opened)

	other, err := NewEncryptor("encryption-secret", "other-salt")
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestEncryptor_RejectsInvalidInput(t *testing.T) {
	enc := newTestEncryptor(t)

	ciphertext, err := enc.Encrypt([]byte("token"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0x01

	for name, input := range map[string][]byte{
		"empty":     {},
		"truncated": ciphertext[:len(ciphertext)-5],
		"too short": ciphertext[:4],
		"tampered":  tampered,
	} {
		_, err := enc.Decrypt(input)
		assert.ErrorIs(t, err, ErrInvalidCiphertext, name)
	}

	for _, input := range []string{"%%%", "abc=", "a"} {
		_, err := enc.Open(input)
		assert.ErrorIs(t, err, ErrInvalidCiphertext, "input %q", input)
	}
}
