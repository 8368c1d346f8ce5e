package keys

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	pemHeader = "-----BEGIN "
	pemFooter = "-----END "
)

// ServiceAccountJSON builds a service-account credentials document from an
// email and a PEM private key, the two values the envelope key service is
// provisioned with. Keys sourced from environment variables often arrive
// with literal `\n` escape sequences; those are unescaped before validation.
func ServiceAccountJSON(email, privateKey, projectID string) ([]byte, error) {
	if email == "" {
		return nil, fmt.Errorf("keys: service account email is empty")
	}

	pk := UnescapePrivateKey(privateKey)
	if err := ValidatePEM(pk); err != nil {
		return nil, err
	}

	doc := map[string]string{
		"type":         "service_account",
		"client_email": email,
		"private_key":  pk,
		"project_id":   projectID,
		"token_uri":    "https://oauth2.googleapis.com/token",
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("keys: marshaling credentials: %w", err)
	}
	return out, nil
}

// UnescapePrivateKey replaces literal `\n` sequences with real newlines.
func UnescapePrivateKey(privateKey string) string {
	return strings.ReplaceAll(privateKey, `\n`, "\n")
}

// ValidatePEM rejects private keys that do not start and end with the
// standard PEM boundary markers. A truncated or mangled key fails here
// instead of deep inside the first envelope call.
func ValidatePEM(privateKey string) error {
	pk := strings.TrimSpace(privateKey)
	if pk == "" {
		return fmt.Errorf("keys: private key is empty")
	}
	if !strings.HasPrefix(pk, pemHeader) {
		return fmt.Errorf("keys: private key does not start with a PEM boundary marker")
	}
	lastLine := pk[strings.LastIndex(pk, "\n")+1:]
	if !strings.HasPrefix(strings.TrimSpace(lastLine), pemFooter) || !strings.HasSuffix(pk, "-----") {
		return fmt.Errorf("keys: private key does not end with a PEM boundary marker")
	}
	return nil
}
