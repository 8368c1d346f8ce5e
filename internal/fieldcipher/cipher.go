// Package fieldcipher encrypts and decrypts individual scalar values under a
// per-field policy. Two modes are supported: deterministic (equal plaintext
// and key yield equal ciphertext, keeping equality lookups possible) and
// random (fresh nonce per call, maximum confidentiality).
//
// Encrypted values are stored as "enc1:d:<base64>" or "enc1:r:<base64>" so
// the storage layer can decrypt transparently on read and plaintext values
// can coexist with ciphertext during migration.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Mode selects the encryption algorithm for a single value.
type Mode int

const (
	// Deterministic produces identical ciphertext for identical plaintext,
	// used for join/lookup keys queried by equality.
	Deterministic Mode = iota

	// Random produces different ciphertext on every call.
	Random
)

const (
	prefixDeterministic = "enc1:d:"
	prefixRandom        = "enc1:r:"

	// KeySize is the required data-encryption-key length in bytes.
	KeySize = 32
)

// ErrBadKeySize is returned by New when the data key is not KeySize bytes.
var ErrBadKeySize = errors.New("fieldcipher: data key must be 32 bytes")

// Cipher encrypts and decrypts scalar string values. It never owns key
// material beyond the subkeys derived from the data key handed to New, and
// is safe for concurrent use.
type Cipher struct {
	det      cipher.AEAD
	rnd      cipher.AEAD
	nonceKey []byte
}

// New derives the mode subkeys from the unwrapped data key and returns a
// ready cipher. Separate HKDF labels isolate the deterministic key, the
// random key and the nonce-derivation key from each other.
func New(dataKey []byte) (*Cipher, error) {
	if len(dataKey) != KeySize {
		return nil, ErrBadKeySize
	}

	detAEAD, err := deriveAEAD(dataKey, "nexsync/field/deterministic")
	if err != nil {
		return nil, err
	}
	rndAEAD, err := deriveAEAD(dataKey, "nexsync/field/random")
	if err != nil {
		return nil, err
	}
	nonceKey, err := deriveBytes(dataKey, "nexsync/field/siv-nonce", 32)
	if err != nil {
		return nil, err
	}

	return &Cipher{det: detAEAD, rnd: rndAEAD, nonceKey: nonceKey}, nil
}

func deriveBytes(secret []byte, purpose string, n int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, []byte("nexsync-field-encryption"), []byte(purpose))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("fieldcipher: HKDF derivation failed: %w", err)
	}
	return out, nil
}

func deriveAEAD(secret []byte, purpose string) (cipher.AEAD, error) {
	key, err := deriveBytes(secret, purpose, 32)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("fieldcipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("fieldcipher: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts a scalar value under the given mode. Encrypting the empty
// string is a no-op returning the empty string: absent values never produce
// ciphertext, so optional fields stay optional in the stored document.
//
// Numeric values must already be in canonical decimal string form ("45.80");
// binary float representations would break deterministic equality.
func (c *Cipher) Encrypt(value string, mode Mode) (string, error) {
	if value == "" {
		return "", nil
	}

	switch mode {
	case Deterministic:
		// SIV-style: the nonce is an HMAC of the plaintext under its own
		// derived key, so equal plaintext always seals identically.
		mac := hmac.New(sha256.New, c.nonceKey)
		mac.Write([]byte(value))
		nonce := mac.Sum(nil)[:c.det.NonceSize()]
		sealed := c.det.Seal(nonce, nonce, []byte(value), nil)
		return prefixDeterministic + base64.StdEncoding.EncodeToString(sealed), nil
	case Random:
		nonce := make([]byte, c.rnd.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return "", fmt.Errorf("fieldcipher: generating nonce: %w", err)
		}
		sealed := c.rnd.Seal(nonce, nonce, []byte(value), nil)
		return prefixRandom + base64.StdEncoding.EncodeToString(sealed), nil
	default:
		return "", fmt.Errorf("fieldcipher: unknown mode %d", int(mode))
	}
}

// EncryptOptional encrypts an optional value, preserving absence: a nil
// input yields nil, and a present-but-empty string stays an empty string.
func (c *Cipher) EncryptOptional(value *string, mode Mode) (*string, error) {
	if value == nil {
		return nil, nil
	}
	out, err := c.Encrypt(*value, mode)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Decrypt reverses Encrypt for either mode, detecting the mode from the
// stored prefix. Values without a recognized prefix are returned unchanged
// (plaintext passthrough for fields that predate encryption).
func (c *Cipher) Decrypt(stored string) (string, error) {
	var aead cipher.AEAD
	var body string
	switch {
	case strings.HasPrefix(stored, prefixDeterministic):
		aead, body = c.det, strings.TrimPrefix(stored, prefixDeterministic)
	case strings.HasPrefix(stored, prefixRandom):
		aead, body = c.rnd, strings.TrimPrefix(stored, prefixRandom)
	default:
		return stored, nil
	}

	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("fieldcipher: invalid base64: %w", err)
	}
	nonceSize := aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("fieldcipher: ciphertext too short")
	}
	plaintext, err := aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("fieldcipher: decryption failed: %w", err)
	}
	return string(plaintext), nil
}

// DecryptOptional reverses EncryptOptional.
func (c *Cipher) DecryptOptional(stored *string) (*string, error) {
	if stored == nil {
		return nil, nil
	}
	out, err := c.Decrypt(*stored)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// IsCiphertext reports whether a stored value carries an encryption prefix.
func IsCiphertext(stored string) bool {
	return strings.HasPrefix(stored, prefixDeterministic) || strings.HasPrefix(stored, prefixRandom)
}
