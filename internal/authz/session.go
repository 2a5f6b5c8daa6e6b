package authz

import (
	"context"
	"fmt"

	"github.com/syncbridge/syncbridge/internal/callspec"
	"github.com/syncbridge/syncbridge/internal/httpexec"
	"github.com/syncbridge/syncbridge/internal/platform"
	"github.com/syncbridge/syncbridge/internal/render"
)

// Executor performs one rendered call specification.
type Executor interface {
	Execute(ctx context.Context, spec *callspec.Spec) (*httpexec.Response, error)
}

// GenerateSessionSecret executes the session-authorization behavior and
// renders the declared result headers/params against its response.
//
// The response is exposed to the result templates under the ephemeral context
// keys `response` and `response_headers`; both are cleared before returning so
// later templates cannot see a stale session response.
func (a *Authorizer) GenerateSessionSecret(ctx context.Context, rctx *render.Context) (*platform.Secret, error) {
	session := a.api.Session
	if session == nil {
		return nil, fmt.Errorf("session authorization behavior is not configured")
	}

	spec, err := a.builder.Build(session.Rule, rctx)
	if err != nil {
		return nil, fmt.Errorf("build session authorization call: %w", err)
	}

	resp, err := a.executor.Execute(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("session authorization call: %w", err)
	}

	rctx.Set("response", httpexec.ParseObject(resp.Text))
	rctx.Set("response_headers", resp.Headers)
	defer rctx.Clear("response", "response_headers")

	headers, err := a.builder.RenderKV(session.Result.Headers, rctx)
	if err != nil {
		return nil, fmt.Errorf("render session authorization headers: %w", err)
	}
	params, err := a.builder.RenderKV(session.Result.Params, rctx)
	if err != nil {
		return nil, fmt.Errorf("render session authorization params: %w", err)
	}

	return &platform.Secret{Headers: headers, Params: params}, nil
}
