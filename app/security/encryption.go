package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

const keyLength = 32

// Encryptor is a reversible AES-GCM cipher keyed once at construction.
// Ciphertexts are laid out as nonce || sealed box.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives a 256-bit key from secret and salt with Argon2id.
func NewEncryptor(secret, salt string) (*Encryptor, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is required")
	}

	key := argon2.IDKey([]byte(secret), []byte(salt), 1, 64*1024, 4, keyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Encryptor{aead: aead}, nil
}

func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize+e.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	plaintext, err := e.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// Encode renders bytes as unpadded URL-safe base64.
func (e *Encryptor) Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func (e *Encryptor) Decode(encoded string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return data, nil
}

// Seal encrypts and encodes a token for embedding in a URL.
func (e *Encryptor) Seal(plaintext string) (string, error) {
	ciphertext, err := e.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return e.Encode(ciphertext), nil
}

// Open reverses Seal.
func (e *Encryptor) Open(sealed string) (string, error) {
	ciphertext, err := e.Decode(sealed)
	if err != nil {
		return "", err
	}
	plaintext, err := e.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
