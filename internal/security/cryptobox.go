package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// cryptoBoxIVSize is 16 bytes rather than GCM's default 12; the
	// stored blob layout (IV || ciphertext || tag) depends on it and
	// must not change once secrets are persisted.
	cryptoBoxIVSize  = 16
	cryptoBoxTagSize = 16
	cryptoBoxKeySize = 32
)

// cryptoBoxAAD is the domain-separation tag bound as AEAD associated
// data on every encrypt and decrypt. A blob encrypted under a different
// context will fail tag verification.
const cryptoBoxAAD = "personahub.secret.v1"

var (
	ErrInvalidKey       = errors.New("encryption key material is invalid")
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrInvalidInput     = errors.New("ciphertext or key missing")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// NormalizeKey turns configured key material into a 32-byte AES-256 key.
// Accepted forms, in order: base64 decoding to exactly 32 bytes, raw
// UTF-8 bytes of length exactly 32. Anything else is hashed with
// SHA-256 as a documented fallback so that any non-empty string yields
// a usable key.
func NormalizeKey(material string) ([]byte, error) {
	if material == "" {
		return nil, ErrInvalidKey
	}

	if decoded, err := base64.StdEncoding.DecodeString(material); err == nil && len(decoded) == cryptoBoxKeySize {
		return decoded, nil
	}
	if len(material) == cryptoBoxKeySize {
		return []byte(material), nil
	}

	sum := sha256.Sum256([]byte(material))
	return sum[:], nil
}

// Encrypt seals plaintext with AES-256-GCM under the given key
// material and returns base64(IV || ciphertext || tag). A fresh random
// 16-byte IV is generated per call; IVs are never reused.
func Encrypt(plaintext string, keyMaterial string) (string, error) {
	key, err := NormalizeKey(keyMaterial)
	if err != nil {
		return "", err
	}

	aead, err := newCryptoBoxAEAD(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	iv := make([]byte, cryptoBoxIVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), []byte(cryptoBoxAAD))

	blob := make([]byte, 0, len(iv)+len(sealed))
	blob = append(blob, iv...)
	blob = append(blob, sealed...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. It fails closed: a short blob, a tampered
// byte, a wrong key, or a wrong associated-data context all yield
// ErrDecryptionFailed and no plaintext.
func Decrypt(blob string, keyMaterial string) (string, error) {
	if blob == "" || keyMaterial == "" {
		return "", ErrInvalidInput
	}

	key, err := NormalizeKey(keyMaterial)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(raw) < cryptoBoxIVSize+cryptoBoxTagSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	aead, err := newCryptoBoxAEAD(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	iv := raw[:cryptoBoxIVSize]
	sealed := raw[cryptoBoxIVSize:]

	plaintext, err := aead.Open(nil, iv, sealed, []byte(cryptoBoxAAD))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

// GenerateKey produces 32 cryptographically random bytes base64-encoded,
// for provisioning new deployments.
func GenerateKey() (string, error) {
	key := make([]byte, cryptoBoxKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func newCryptoBoxAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, cryptoBoxIVSize)
}
