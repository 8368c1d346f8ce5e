// Package keys manages the data-encryption key used by the field cipher.
// The key material is generated locally, wrapped by a master key held in an
// external envelope key service, and persisted into a key-vault collection
// tagged with a well-known alternate name. The plaintext key only ever lives
// in process memory.
package keys

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nexpass/nexsync/internal/fieldcipher"
)

// DataKeyAltName is the alternate-name tag under which the pipeline's data
// key is stored in the key vault.
const DataKeyAltName = "nexpass-data-key"

var (
	// ErrKeyServiceUnavailable indicates the envelope key service could not
	// wrap or unwrap the data key. This is fatal for ingestion: there is no
	// fallback to unencrypted storage.
	ErrKeyServiceUnavailable = errors.New("keys: envelope key service unavailable")

	// ErrDuplicateAltName is returned by a Vault implementation when an
	// insert collides with an existing entry carrying the same alternate
	// name. The manager recovers by re-reading the winning entry.
	ErrDuplicateAltName = errors.New("keys: key alt name already exists")
)

// KeyHandle is the unwrapped data key held in process memory. Material must
// never be logged or persisted.
type KeyHandle struct {
	ID       string
	Material []byte
}

// VaultEntry is a wrapped data key as persisted in the key-vault collection.
type VaultEntry struct {
	ID          string    `bson:"_id"`
	KeyMaterial []byte    `bson:"keyMaterial"`
	KeyAltNames []string  `bson:"keyAltNames"`
	CreatedAt   time.Time `bson:"createdAt"`
}

// Vault is the key-vault collection boundary.
type Vault interface {
	// FindByAltName returns the entry tagged with altName, or (nil, nil)
	// when no such entry exists.
	FindByAltName(ctx context.Context, altName string) (*VaultEntry, error)

	// Insert persists a new entry. Implementations must enforce alt-name
	// uniqueness and return ErrDuplicateAltName on collision.
	Insert(ctx context.Context, entry *VaultEntry) error
}

// EnvelopeService wraps and unwraps data-key material with the master key.
type EnvelopeService interface {
	Wrap(ctx context.Context, plaintext []byte) ([]byte, error)
	Unwrap(ctx context.Context, wrapped []byte) ([]byte, error)
}

// Manager owns the data key for the process lifetime. It is constructed once
// at startup and injected wherever encryption happens; there is no package-
// level singleton. Safe for concurrent use.
type Manager struct {
	vault    Vault
	envelope EnvelopeService
	log      zerolog.Logger

	mu     sync.Mutex
	cached *KeyHandle
}

// NewManager creates a Manager. No key is touched until the first
// GetOrCreateDataKey call.
func NewManager(vault Vault, envelope EnvelopeService, log zerolog.Logger) *Manager {
	return &Manager{vault: vault, envelope: envelope, log: log}
}

// GetOrCreateDataKey returns the process data key, creating and persisting it
// on first use. Concurrent first callers are serialized so exactly one vault
// entry is ever created per alternate name; later calls are served from the
// in-process cache without touching the vault.
//
// If the envelope service is unreachable the call fails with
// ErrKeyServiceUnavailable. Callers must treat this as fatal.
func (m *Manager) GetOrCreateDataKey(ctx context.Context) (*KeyHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		return m.cached, nil
	}

	entry, err := m.vault.FindByAltName(ctx, DataKeyAltName)
	if err != nil {
		return nil, fmt.Errorf("keys: searching key vault: %w", err)
	}
	if entry != nil {
		return m.unwrapAndCache(ctx, entry)
	}

	material := make([]byte, fieldcipher.KeySize)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("keys: generating data key: %w", err)
	}

	wrapped, err := m.envelope.Wrap(ctx, material)
	if err != nil {
		return nil, fmt.Errorf("%w: wrapping data key: %v", ErrKeyServiceUnavailable, err)
	}

	entry = &VaultEntry{
		ID:          uuid.NewString(),
		KeyMaterial: wrapped,
		KeyAltNames: []string{DataKeyAltName},
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.vault.Insert(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateAltName) {
			// Another process won the creation race. Adopt its key: two
			// live keys under one alt name would split ciphertext.
			winner, ferr := m.vault.FindByAltName(ctx, DataKeyAltName)
			if ferr != nil {
				return nil, fmt.Errorf("keys: re-reading key vault after race: %w", ferr)
			}
			if winner == nil {
				return nil, fmt.Errorf("keys: alt name collision but no entry found")
			}
			return m.unwrapAndCache(ctx, winner)
		}
		return nil, fmt.Errorf("keys: persisting data key: %w", err)
	}

	m.log.Info().Str("key_id", entry.ID).Msg("Created new data encryption key")
	m.cached = &KeyHandle{ID: entry.ID, Material: material}
	return m.cached, nil
}

func (m *Manager) unwrapAndCache(ctx context.Context, entry *VaultEntry) (*KeyHandle, error) {
	material, err := m.envelope.Unwrap(ctx, entry.KeyMaterial)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrapping data key %s: %v", ErrKeyServiceUnavailable, entry.ID, err)
	}
	if len(material) != fieldcipher.KeySize {
		return nil, fmt.Errorf("keys: unwrapped key %s has %d bytes, want %d", entry.ID, len(material), fieldcipher.KeySize)
	}
	m.log.Debug().Str("key_id", entry.ID).Msg("Using existing data encryption key")
	m.cached = &KeyHandle{ID: entry.ID, Material: material}
	return m.cached, nil
}
