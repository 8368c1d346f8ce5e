// Package config loads the pipeline configuration from a YAML file with
// environment-variable overrides for secrets, so credentials never need to
// live on disk next to the tunables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Mongo      MongoConfig      `yaml:"mongo"`
	KMS        KMSConfig        `yaml:"kms"`
	GoCardless GoCardlessConfig `yaml:"gocardless"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Sync       SyncConfig       `yaml:"sync"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// MongoConfig locates the document store.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// KMSConfig locates the envelope master key and its service account.
type KMSConfig struct {
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
	KeyRing   string `yaml:"key_ring"`
	KeyName   string `yaml:"key_name"`

	ServiceAccountEmail string `yaml:"service_account_email"`
	// PrivateKey is normally injected via NEXSYNC_GCP_PRIVATE_KEY rather
	// than written into the file.
	PrivateKey string `yaml:"private_key"`
}

// GoCardlessConfig holds the bank-data API secrets.
type GoCardlessConfig struct {
	SecretID  string `yaml:"secret_id"`
	SecretKey string `yaml:"secret_key"`
}

// GeminiConfig enables the remote classification tier when APIKey is set.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// SyncConfig tunes the ingestion engine.
type SyncConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	RecordTimeout time.Duration `yaml:"record_timeout"`
}

// MetricsConfig enables the Prometheus listener when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads the YAML file at path, applies environment overrides, then
// validates. path may be empty, in which case only environment values count.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Mongo: MongoConfig{Database: "nexsync"},
		Sync:  SyncConfig{Concurrency: 4, RecordTimeout: 30 * time.Second},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.Mongo.URI, "NEXSYNC_MONGO_URI")
	overrideString(&c.Mongo.Database, "NEXSYNC_MONGO_DATABASE")
	overrideString(&c.GoCardless.SecretID, "NEXSYNC_GC_SECRET_ID")
	overrideString(&c.GoCardless.SecretKey, "NEXSYNC_GC_SECRET_KEY")
	overrideString(&c.KMS.ServiceAccountEmail, "NEXSYNC_GCP_SA_EMAIL")
	overrideString(&c.KMS.PrivateKey, "NEXSYNC_GCP_PRIVATE_KEY")
	overrideString(&c.Gemini.APIKey, "NEXSYNC_GEMINI_API_KEY")
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}
	if c.KMS.ProjectID == "" || c.KMS.Location == "" || c.KMS.KeyRing == "" || c.KMS.KeyName == "" {
		errs = append(errs, errors.New("kms.project_id, kms.location, kms.key_ring and kms.key_name are required"))
	}
	if c.Sync.Concurrency < 1 {
		errs = append(errs, errors.New("sync.concurrency must be at least 1"))
	}
	if c.Sync.RecordTimeout <= 0 {
		errs = append(errs, errors.New("sync.record_timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
