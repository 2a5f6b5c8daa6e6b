// Package authz normalizes the two authorization inputs of a managed
// connector into canonical modes and attaches the resolved secrets to call
// specifications.
package authz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/syncbridge/syncbridge/internal/behavior"
)

// APIMode is the canonical API-side authorization mode, resolved once at
// connector construction.
type APIMode string

const (
	// ModeCredentialLookup fetches a secret by credential ID at request time.
	ModeCredentialLookup APIMode = "credential_lookup"
	// ModeSession generates a secret by executing the session behavior.
	ModeSession APIMode = "session"
	// ModeStatic uses the configured headers/params unchanged.
	ModeStatic APIMode = "static"
)

// APIAuthorization is the resolved API-side authorization.
type APIAuthorization struct {
	Mode         APIMode
	CredentialID string
	Session      *behavior.SessionBehavior
	Headers      map[string]string
	Params       map[string]string
}

type rawAPIAuthorization struct {
	CredentialID string                    `json:"credential_id"`
	Type         string                    `json:"type"`
	Session      *behavior.SessionBehavior `json:"behavior"`
	Headers      map[string]string         `json:"headers"`
	Params       map[string]string         `json:"params"`
}

// ResolveAPIAuthorization normalizes the saas_authorization input. The input
// may arrive as a mapping or as a JSON-encoded string holding one. Exactly one
// of the three recognized shapes must match.
func ResolveAPIAuthorization(connectorID string, raw json.RawMessage) (*APIAuthorization, error) {
	data, err := unwrapMapping(raw)
	if err != nil {
		return nil, behavior.NewConfigError(connectorID, "authorization for the external API must be a JSON mapping")
	}

	var parsed rawAPIAuthorization
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, behavior.NewConfigError(connectorID, "authorization for the external API must be a JSON mapping")
	}

	switch {
	case strings.TrimSpace(parsed.CredentialID) != "":
		return &APIAuthorization{
			Mode:         ModeCredentialLookup,
			CredentialID: strings.TrimSpace(parsed.CredentialID),
		}, nil

	case parsed.Type == "session":
		if parsed.Session == nil || parsed.Session.Empty() {
			return nil, behavior.NewConfigError(connectorID, "session authorization requires a behavior")
		}
		return &APIAuthorization{
			Mode:    ModeSession,
			Session: parsed.Session,
		}, nil

	case len(parsed.Headers) > 0 || len(parsed.Params) > 0:
		auth := &APIAuthorization{
			Mode:    ModeStatic,
			Headers: parsed.Headers,
			Params:  parsed.Params,
		}
		if auth.Headers == nil {
			auth.Headers = map[string]string{}
		}
		if auth.Params == nil {
			auth.Params = map[string]string{}
		}
		return auth, nil

	default:
		return nil, behavior.NewConfigError(connectorID, "external API authorization format is invalid")
	}
}

// PlatformAuthorization is the resolved platform-side authorization. Exactly
// one of Token or TokenID is set; TokenID is exchanged lazily at use time.
type PlatformAuthorization struct {
	Token   string
	TokenID string
}

// ResolvePlatformAuthorization normalizes the oomnitza_authorization input:
// a non-empty string used verbatim, nothing (inherit the platform's own
// token), or a mapping carrying token_id.
func ResolvePlatformAuthorization(connectorID string, raw json.RawMessage, inheritedToken string) (*PlatformAuthorization, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == `""` || trimmed == "{}" {
		return &PlatformAuthorization{Token: inheritedToken}, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.TrimSpace(asString) == "" {
			return &PlatformAuthorization{Token: inheritedToken}, nil
		}
		return &PlatformAuthorization{Token: strings.TrimSpace(asString)}, nil
	}

	var asMapping struct {
		TokenID json.RawMessage `json:"token_id"`
	}
	if err := json.Unmarshal(raw, &asMapping); err == nil && len(asMapping.TokenID) > 0 {
		tokenID := strings.Trim(strings.TrimSpace(string(asMapping.TokenID)), `"`)
		if tokenID != "" && tokenID != "null" {
			return &PlatformAuthorization{TokenID: tokenID}, nil
		}
	}

	return nil, behavior.NewConfigError(connectorID, "platform authorization format is invalid")
}

func unwrapMapping(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty authorization")
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("not a mapping")
	}
	return raw, nil
}
