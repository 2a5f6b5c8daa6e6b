package authz

import (
	"context"
	"fmt"

	"github.com/syncbridge/syncbridge/internal/callspec"
	"github.com/syncbridge/syncbridge/internal/httpexec"
	"github.com/syncbridge/syncbridge/internal/platform"
	"github.com/syncbridge/syncbridge/internal/render"
)

// Authorizer attaches the resolved API-side authorization to call
// specifications. The canonical mode is decided once at construction; Attach
// only dispatches on it.
type Authorizer struct {
	api      *APIAuthorization
	secrets  platform.SecretSource
	builder  *callspec.Builder
	executor Executor
}

func NewAuthorizer(api *APIAuthorization, secrets platform.SecretSource, builder *callspec.Builder, executor Executor) *Authorizer {
	return &Authorizer{
		api:      api,
		secrets:  secrets,
		builder:  builder,
		executor: executor,
	}
}

// Mode returns the canonical API-side authorization mode.
func (a *Authorizer) Mode() APIMode {
	return a.api.Mode
}

// Attach layers authorization headers/params (and, for credential-lookup
// secrets carrying certificates, a TLS adapter) onto the spec. Authorization
// is always merged last, after pagination extras.
func (a *Authorizer) Attach(ctx context.Context, spec *callspec.Spec, rctx *render.Context) error {
	switch a.api.Mode {
	case ModeCredentialLookup:
		secret, err := a.secrets.GetSecretByCredentialID(ctx, a.api.CredentialID, spec)
		if err != nil {
			return fmt.Errorf("resolve credential %s: %w", a.api.CredentialID, err)
		}
		if !secret.Certificates.Empty() {
			tlsCfg, err := httpexec.NewMTLSConfig(secret.Certificates)
			if err != nil {
				return fmt.Errorf("credential %s certificates: %w", a.api.CredentialID, err)
			}
			spec.TLS = tlsCfg
		}
		spec.MergeHeaders(secret.Headers)
		spec.MergeParams(secret.Params)
		return nil

	case ModeSession:
		secret, err := a.GenerateSessionSecret(ctx, rctx)
		if err != nil {
			return err
		}
		spec.MergeHeaders(secret.Headers)
		spec.MergeParams(secret.Params)
		return nil

	default:
		spec.MergeHeaders(a.api.Headers)
		spec.MergeParams(a.api.Params)
		return nil
	}
}
