// Package envseal seals and unseals environment files so secrets can live
// in a repository without being readable there. Files are encrypted with
// AES-256-GCM under a key derived from a password with PBKDF2-SHA256, and
// written as a JSON envelope carrying base64 ciphertext, nonce, and tag.
// The envelope keeps the authentication tag separate from the ciphertext,
// so files sealed by envcloak open here and vice versa.
package envseal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the required salt length in bytes for key derivation.
	SaltSize = 16

	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32

	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12

	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16

	// kdfIterations is the PBKDF2 iteration count.
	kdfIterations = 100000
)

// Envelope is the sealed representation of a plaintext. All fields are
// base64 encoded in the JSON form.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Tag        string `json:"tag"`
}

// DeriveKey derives a 32-byte AES key from a password and a 16-byte salt
// using PBKDF2 with SHA-256.
func DeriveKey(password string, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSalt, SaltSize, len(salt))
	}
	return pbkdf2.Key([]byte(password), salt, kdfIterations, KeySize, sha256.New), nil
}

// GenerateSalt returns a new random salt of the standard size.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: generate salt: %w", ErrEncrypt, err)
	}
	return salt, nil
}

// GenerateKey returns a new random 32-byte key, for key files that are
// not derived from a password.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("%w: generate key: %w", ErrEncrypt, err)
	}
	return key, nil
}

// Encrypt seals data under the given 32-byte key and returns the envelope.
func Encrypt(data, key []byte) (*Envelope, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: generate nonce: %w", ErrEncrypt, err)
	}

	// Seal appends the tag to the ciphertext; the envelope stores them
	// separately.
	sealed := aead.Seal(nil, nonce, data, nil)
	split := len(sealed) - tagSize

	return &Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Tag:        base64.StdEncoding.EncodeToString(sealed[split:]),
	}, nil
}

// Decrypt opens an envelope under the given 32-byte key and returns the
// plaintext. Any tampering with ciphertext, nonce, or tag fails
// authentication.
func Decrypt(env *Envelope, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decode ciphertext: %w", ErrDecrypt, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: decode nonce: %w", ErrDecrypt, err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: decode tag: %w", ErrDecrypt, err)
	}

	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: expected %d-byte nonce, got %d", ErrDecrypt, NonceSize, len(nonce))
	}
	if len(tag) != tagSize {
		return nil, fmt.Errorf("%w: expected %d-byte tag, got %d", ErrDecrypt, tagSize, len(tag))
	}

	plaintext, err := aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return plaintext, nil
}

// MarshalEnvelope renders an envelope as JSON.
func MarshalEnvelope(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal envelope: %w", ErrEncrypt, err)
	}
	return data, nil
}

// UnmarshalEnvelope parses a JSON envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: parse envelope: %w", ErrDecrypt, err)
	}
	if env.Ciphertext == "" && env.Nonce == "" && env.Tag == "" {
		return nil, fmt.Errorf("%w: envelope is empty", ErrDecrypt)
	}
	return &env, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d-byte key, got %d", ErrInvalidKey, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return aead, nil
}
