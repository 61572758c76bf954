// Package secret seals small values (course LLM API keys) at rest.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey        = errors.New("secret key must be 32 bytes hex-encoded")
	ErrMalformedCipher   = errors.New("sealed value is malformed")
	ErrSealerUnavailable = errors.New("secret sealing is not configured")
)

// Sealer encrypts and decrypts values with XChaCha20-Poly1305.
// Output layout is nonce || ciphertext.
type Sealer struct {
	key []byte
}

// NewSealer parses a hex-encoded 32-byte key.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext. aad binds the value to its owner (e.g. the course ID).
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrSealerUnavailable
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open decrypts a value produced by Seal with the same aad.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrSealerUnavailable
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformedCipher
	}

	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, ErrMalformedCipher
	}
	return plain, nil
}

// CourseAAD is the associated data used when sealing a course's key.
func CourseAAD(courseID int64) []byte {
	return fmt.Appendf(nil, "course:%d", courseID)
}
