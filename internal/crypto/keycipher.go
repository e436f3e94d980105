package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Blob layout: base64(salt ‖ iv ‖ tag ‖ ciphertext)
const (
	SaltSize   = 16
	NonceSize  = 12
	TagSize    = 16
	KeySize    = 32
	HeaderSize = SaltSize + NonceSize + TagSize
)

// scrypt cost parameters. Changing these breaks every stored blob.
const (
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

var (
	// ErrInvalidPassword is returned when the authentication tag does not verify.
	// A wrong password and a tampered ciphertext are indistinguishable.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrMalformedBlob is returned for input that is not base64 or is too short
	ErrMalformedBlob = errors.New("malformed encrypted blob")
)

// KeyCipher performs password-based authenticated encryption of key material
type KeyCipher struct{}

// NewKeyCipher creates a KeyCipher
func NewKeyCipher() *KeyCipher {
	return &KeyCipher{}
}

// Encrypt seals plaintext under a key derived from password and a fresh salt.
// Two calls with the same input never produce the same blob.
func (c *KeyCipher) Encrypt(plaintext []byte, password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}

	// Seal returns ciphertext‖tag; the blob stores the tag first
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, HeaderSize+len(ct))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. No plaintext is returned unless
// the authentication tag verifies.
func (c *KeyCipher) Decrypt(encoded, password string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedBlob
	}
	if len(blob) < HeaderSize {
		return nil, ErrMalformedBlob
	}

	salt := blob[:SaltSize]
	nonce := blob[SaltSize : SaltSize+NonceSize]
	tag := blob[SaltSize+NonceSize : HeaderSize]
	ct := blob[HeaderSize:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
