package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/syncbridge/syncbridge/internal/callspec"
	"github.com/syncbridge/syncbridge/internal/httpexec"
)

// VaultOptions configure the on-premise Vault secret source.
type VaultOptions struct {
	Address   string
	Token     string
	MountPath string
}

// VaultSecretStore resolves credential-lookup secrets from a Vault KV v2
// mount instead of the cloud endpoint. The secret shape matches the platform's.
type VaultSecretStore struct {
	client *vaultapi.Client
	mount  string
}

func NewVaultSecretStore(opts VaultOptions) (*VaultSecretStore, error) {
	address := strings.TrimSpace(opts.Address)
	if address == "" {
		return nil, errors.New("vault address is required")
	}
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.New("vault token is required")
	}
	mount := strings.Trim(strings.TrimSpace(opts.MountPath), "/")
	if mount == "" {
		mount = "secret"
	}

	cfg := vaultapi.DefaultConfig()
	cfg.Address = address
	cfg.HttpClient = &http.Client{Timeout: 120 * time.Second}

	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client setup: %w", err)
	}
	client.SetToken(token)

	return &VaultSecretStore{client: client, mount: mount}, nil
}

// GetSecretByCredentialID reads the secret stored under the credential ID.
// Expected data keys: headers, params (string mappings) and certificate,
// private_key, ca_certificate (PEM strings).
func (s *VaultSecretStore) GetSecretByCredentialID(ctx context.Context, credentialID string, _ *callspec.Spec) (*Secret, error) {
	credentialID = strings.TrimSpace(credentialID)
	if credentialID == "" {
		return nil, errors.New("credential id is required")
	}

	path := s.mount + "/data/" + credentialID
	raw, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("vault read %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("vault secret %s not found", credentialID)
	}

	data, _ := raw.Data["data"].(map[string]any)
	if data == nil {
		data = raw.Data
	}

	secret := &Secret{
		Headers: stringMap(data["headers"]),
		Params:  stringMap(data["params"]),
		Certificates: httpexec.CertificateBundle{
			Certificate: stringValue(data["certificate"]),
			PrivateKey:  stringValue(data["private_key"]),
			CACert:      stringValue(data["ca_certificate"]),
		},
	}
	normalizeSecret(secret)
	return secret, nil
}

func stringMap(value any) map[string]string {
	out := map[string]string{}
	m, ok := value.(map[string]any)
	if !ok {
		return out
	}
	for k, v := range m {
		out[k] = stringValue(v)
	}
	return out
}

func stringValue(value any) string {
	s, _ := value.(string)
	return s
}
