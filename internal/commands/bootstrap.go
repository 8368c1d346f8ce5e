package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nexpass/nexsync/internal/classify"
	"github.com/nexpass/nexsync/internal/config"
	"github.com/nexpass/nexsync/internal/fieldcipher"
	"github.com/nexpass/nexsync/internal/ingest"
	"github.com/nexpass/nexsync/internal/keys"
	"github.com/nexpass/nexsync/internal/logger"
	"github.com/nexpass/nexsync/internal/query"
	"github.com/nexpass/nexsync/internal/store"
	"github.com/nexpass/nexsync/internal/store/mongostore"
)

// app holds the wired pipeline for one command invocation.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store *mongostore.Store
	codec *store.Codec

	engine *ingest.Engine
	query  *query.Service
	vault  *mongostore.Vault

	client   *mongo.Client
	envelope *keys.KMSEnvelope
}

// newApp loads configuration and builds the full pipeline: store, key
// manager, field cipher, classifier, engine. Failing to obtain the data key
// is fatal; there is no unencrypted fallback.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New()

	client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.Mongo.Database)
	st := mongostore.New(db)
	vault := mongostore.NewVault(db.Collection(mongostore.KeyVaultCollection))

	envelope, err := newEnvelope(ctx, cfg)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	manager := keys.NewManager(vault, envelope, log)
	handle, err := manager.GetOrCreateDataKey(ctx)
	if err != nil {
		envelope.Close()
		client.Disconnect(context.Background())
		return nil, err
	}
	cipher, err := fieldcipher.New(handle.Material)
	if err != nil {
		envelope.Close()
		client.Disconnect(context.Background())
		return nil, err
	}
	codec := store.NewCodec(cipher)

	var remote classify.RemoteClassifier
	if cfg.Gemini.APIKey != "" {
		model := cfg.Gemini.Model
		if model == "" {
			model = classify.DefaultGeminiModel
		}
		gemini, err := classify.NewGeminiClassifier(ctx, cfg.Gemini.APIKey, model)
		if err != nil {
			envelope.Close()
			client.Disconnect(context.Background())
			return nil, err
		}
		remote = gemini
	}

	engine := ingest.New(st, codec, classify.New(remote), log, ingest.Options{
		Concurrency:   cfg.Sync.Concurrency,
		RecordTimeout: cfg.Sync.RecordTimeout,
	})

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		codec:    codec,
		engine:   engine,
		query:    query.New(st, codec),
		vault:    vault,
		client:   client,
		envelope: envelope,
	}, nil
}

func newEnvelope(ctx context.Context, cfg *config.Config) (*keys.KMSEnvelope, error) {
	privateKey := keys.UnescapePrivateKey(cfg.KMS.PrivateKey)
	if err := keys.ValidatePEM(privateKey); err != nil {
		return nil, fmt.Errorf("kms credentials: %w", err)
	}
	credentials, err := keys.ServiceAccountJSON(cfg.KMS.ServiceAccountEmail, privateKey, cfg.KMS.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("kms credentials: %w", err)
	}
	return keys.NewKMSEnvelope(ctx, keys.MasterKeyRef{
		ProjectID: cfg.KMS.ProjectID,
		Location:  cfg.KMS.Location,
		KeyRing:   cfg.KMS.KeyRing,
		KeyName:   cfg.KMS.KeyName,
	}, credentials)
}

func (a *app) Close() {
	if a.envelope != nil {
		a.envelope.Close()
	}
	if a.client != nil {
		a.client.Disconnect(context.Background())
	}
}
