package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nexpass/nexsync/internal/keys"
)

// KeyVaultCollection is the default key-vault collection name.
const KeyVaultCollection = "datakeys"

// Vault is a MongoDB-backed keys.Vault.
type Vault struct {
	coll *mongo.Collection
}

// NewVault wraps a key-vault collection.
func NewVault(coll *mongo.Collection) *Vault {
	return &Vault{coll: coll}
}

// EnsureIndexes creates the partial unique index on keyAltNames that turns
// the create-if-absent key flow into a real race: exactly one writer wins,
// everyone else sees a duplicate-key error and adopts the winner's key.
func (v *Vault) EnsureIndexes(ctx context.Context) error {
	_, err := v.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "keyAltNames", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"keyAltNames": bson.M{"$exists": true}}),
	})
	if err != nil {
		return fmt.Errorf("mongostore: key vault indexes: %w", err)
	}
	return nil
}

func (v *Vault) FindByAltName(ctx context.Context, altName string) (*keys.VaultEntry, error) {
	var entry keys.VaultEntry
	err := v.coll.FindOne(ctx, bson.M{"keyAltNames": altName}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: key vault find: %w", err)
	}
	return &entry, nil
}

func (v *Vault) Insert(ctx context.Context, entry *keys.VaultEntry) error {
	_, err := v.coll.InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return keys.ErrDuplicateAltName
	}
	if err != nil {
		return fmt.Errorf("mongostore: key vault insert: %w", err)
	}
	return nil
}
