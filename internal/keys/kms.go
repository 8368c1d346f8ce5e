package keys

import (
	"context"
	"fmt"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"google.golang.org/api/option"
)

// MasterKeyRef locates the envelope master key by project, location, key
// ring and key name.
type MasterKeyRef struct {
	ProjectID string
	Location  string
	KeyRing   string
	KeyName   string
}

// ResourceName returns the fully qualified Cloud KMS crypto-key name.
func (r MasterKeyRef) ResourceName() string {
	return fmt.Sprintf("projects/%s/locations/%s/keyRings/%s/cryptoKeys/%s",
		r.ProjectID, r.Location, r.KeyRing, r.KeyName)
}

// KMSEnvelope implements EnvelopeService against Google Cloud KMS. The data
// key is generated locally and wrapped/unwrapped by the named master key; its
// plaintext never leaves the process.
type KMSEnvelope struct {
	client  *kms.KeyManagementClient
	keyName string
}

// NewKMSEnvelope dials Cloud KMS with service-account credentials built by
// ServiceAccountJSON.
func NewKMSEnvelope(ctx context.Context, ref MasterKeyRef, credentialsJSON []byte) (*KMSEnvelope, error) {
	client, err := kms.NewKeyManagementClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("keys: creating KMS client: %w", err)
	}
	return &KMSEnvelope{client: client, keyName: ref.ResourceName()}, nil
}

// Wrap encrypts data-key material with the master key.
func (e *KMSEnvelope) Wrap(ctx context.Context, plaintext []byte) ([]byte, error) {
	resp, err := e.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:      e.keyName,
		Plaintext: plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("keys: KMS encrypt: %w", err)
	}
	return resp.GetCiphertext(), nil
}

// Unwrap decrypts wrapped data-key material with the master key.
func (e *KMSEnvelope) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	resp, err := e.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       e.keyName,
		Ciphertext: wrapped,
	})
	if err != nil {
		return nil, fmt.Errorf("keys: KMS decrypt: %w", err)
	}
	return resp.GetPlaintext(), nil
}

// Close releases the underlying KMS client.
func (e *KMSEnvelope) Close() error {
	return e.client.Close()
}
