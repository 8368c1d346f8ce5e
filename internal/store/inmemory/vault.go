package inmemory

import (
	"context"
	"sync"

	"github.com/nexpass/nexsync/internal/keys"
)

// Vault is a map-backed keys.Vault for tests and local development. It
// enforces the same alt-name uniqueness the mongo vault does.
type Vault struct {
	mu      sync.Mutex
	entries []*keys.VaultEntry
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{}
}

func (v *Vault) FindByAltName(ctx context.Context, altName string) (*keys.VaultEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, e := range v.entries {
		for _, name := range e.KeyAltNames {
			if name == altName {
				cp := *e
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (v *Vault) Insert(ctx context.Context, entry *keys.VaultEntry) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, e := range v.entries {
		for _, have := range e.KeyAltNames {
			for _, want := range entry.KeyAltNames {
				if have == want {
					return keys.ErrDuplicateAltName
				}
			}
		}
	}
	cp := *entry
	v.entries = append(v.entries, &cp)
	return nil
}
