// Package platform talks to the syncbridge platform API: token and credential
// resolution, AWS request signing, and unit-of-work (portion) reporting.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/syncbridge/syncbridge/internal/awsiam"
	"github.com/syncbridge/syncbridge/internal/callspec"
	"github.com/syncbridge/syncbridge/internal/httpexec"
)

const (
	defaultTimeout   = 120 * time.Second
	maxErrorBodySize = 1 << 20 // 1 MiB
)

// Secret is a resolved authorization secret: headers and params to merge into
// a call specification, plus an optional client-certificate bundle.
type Secret struct {
	Headers      map[string]string          `json:"headers"`
	Params       map[string]string          `json:"params"`
	Certificates httpexec.CertificateBundle `json:"certificates"`
}

// SecretSource resolves a credential-lookup secret. Implemented by the cloud
// client and by the Vault store for on-premise installs.
type SecretSource interface {
	GetSecretByCredentialID(ctx context.Context, credentialID string, spec *callspec.Spec) (*Secret, error)
}

// TokenResolver exchanges a platform token ID for a usable API token.
type TokenResolver interface {
	GetTokenByTokenID(ctx context.Context, tokenID string) (string, error)
}

// Client is the platform API client.
type Client struct {
	BaseURL  string
	APIToken string
	HTTP     *http.Client
}

func New(baseURL, apiToken string) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("platform base URL is required")
	}
	return &Client{
		BaseURL:  base,
		APIToken: strings.TrimSpace(apiToken),
		HTTP:     &http.Client{Timeout: defaultTimeout},
	}, nil
}

// WithToken returns a copy of the client authorized with a different token.
// Managed syncs happen on behalf of a per-connector token.
func (c *Client) WithToken(token string) *Client {
	out := *c
	out.APIToken = strings.TrimSpace(token)
	return &out
}

// Authenticate verifies that the configured token is accepted.
func (c *Client) Authenticate(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v3/auth/validate", nil, nil)
}

// GetTokenByTokenID resolves a cloud token ID to an API token.
func (c *Client) GetTokenByTokenID(ctx context.Context, tokenID string) (string, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return "", errors.New("token id is required")
	}
	var payload struct {
		Token string `json:"token"`
	}
	path := "/api/v3/tokens/" + url.PathEscape(tokenID)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.Token) == "" {
		return "", fmt.Errorf("token id %s resolved empty", tokenID)
	}
	return payload.Token, nil
}

// GetSecretByCredentialID fetches the ready-to-use secret stored under a
// credential ID. The call specification is sent along so the platform can
// scope the secret to the request.
func (c *Client) GetSecretByCredentialID(ctx context.Context, credentialID string, spec *callspec.Spec) (*Secret, error) {
	credentialID = strings.TrimSpace(credentialID)
	if credentialID == "" {
		return nil, errors.New("credential id is required")
	}

	body := map[string]any{
		"method":  spec.Method,
		"url":     spec.URL,
		"headers": spec.Headers,
		"params":  spec.Params,
	}
	var secret Secret
	path := "/api/v3/credentials/" + url.PathEscape(credentialID) + "/secret"
	if err := c.do(ctx, http.MethodPost, path, body, &secret); err != nil {
		return nil, err
	}
	normalizeSecret(&secret)
	return &secret, nil
}

// GetAWSSessionSecret asks the platform to sign the call specification with
// the given short-lived credentials, returning the authorization headers and
// params to attach.
func (c *Client) GetAWSSessionSecret(ctx context.Context, spec *callspec.Spec, creds awsiam.CredentialSet) (*Secret, error) {
	body := map[string]any{
		"method":  spec.Method,
		"url":     spec.URL,
		"headers": spec.Headers,
		"params":  spec.Params,
		"credentials": map[string]string{
			"access_key_id":     creds.AccessKeyID,
			"secret_access_key": creds.SecretAccessKey,
			"session_token":     creds.SessionToken,
		},
	}
	var secret Secret
	if err := c.do(ctx, http.MethodPost, "/api/v3/aws/session_secret", body, &secret); err != nil {
		return nil, err
	}
	normalizeSecret(&secret)
	return &secret, nil
}

func normalizeSecret(secret *Secret) {
	if secret.Headers == nil {
		secret.Headers = map[string]string{}
	}
	if secret.Params == nil {
		secret.Params = map[string]string{}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	resp.Body.Close()
	if readErr != nil {
		return readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return formatAPIError(path, resp, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode platform response for %s: %w", path, err)
		}
	}
	return nil
}

func formatAPIError(path string, resp *http.Response, body []byte) error {
	message := extractAPIErrorMessage(body)
	if message != "" {
		return fmt.Errorf("platform api failed: %s: %s (path=%s)", resp.Status, message, path)
	}
	return fmt.Errorf("platform api failed: %s (path=%s)", resp.Status, path)
}

func extractAPIErrorMessage(body []byte) string {
	var payload struct {
		Errors  []string `json:"errors"`
		Error   string   `json:"error"`
		Message string   `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Errors) > 0 {
			if first := strings.TrimSpace(payload.Errors[0]); first != "" {
				return first
			}
		}
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "<!DOCTYPE html") || strings.HasPrefix(msg, "<html") {
		return ""
	}
	msg = strings.Join(strings.Fields(msg), " ")
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
