// Package callspec builds concrete request descriptors from declarative
// behavior rules and the current rendering context.
package callspec

import (
	"crypto/tls"
	"errors"
	"net/http"
	"strings"

	"github.com/syncbridge/syncbridge/internal/behavior"
	"github.com/syncbridge/syncbridge/internal/render"
)

// Spec is a fully rendered request descriptor. Authorization and pagination
// extras are merged in after base construction, never before.
type Spec struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]string
	TLS     *tls.Config
}

// Clone returns a deep copy of the spec. Rotating-credential requests mutate a
// copy so the base spec stays untouched.
func (s *Spec) Clone() *Spec {
	out := &Spec{
		Method:  s.Method,
		URL:     s.URL,
		Headers: make(map[string]string, len(s.Headers)),
		Params:  make(map[string]string, len(s.Params)),
		TLS:     s.TLS,
	}
	for k, v := range s.Headers {
		out.Headers[k] = v
	}
	for k, v := range s.Params {
		out.Params[k] = v
	}
	return out
}

// MergeHeaders overlays the given headers onto the spec.
func (s *Spec) MergeHeaders(headers map[string]string) {
	for k, v := range headers {
		s.Headers[k] = v
	}
}

// MergeParams overlays the given query parameters onto the spec.
func (s *Spec) MergeParams(params map[string]string) {
	for k, v := range params {
		s.Params[k] = v
	}
}

// Builder renders behavior rules into call specifications. Build is a pure
// function of the rule and the context.
type Builder struct {
	renderer *render.Renderer
}

func NewBuilder(renderer *render.Renderer) *Builder {
	return &Builder{renderer: renderer}
}

// Build renders the rule's url, method, headers and params against the context
// and returns a fresh spec.
func (b *Builder) Build(rule behavior.Rule, ctx *render.Context) (*Spec, error) {
	url, err := b.renderer.String(rule.URL, ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("behavior url rendered empty")
	}

	method := strings.ToUpper(strings.TrimSpace(rule.HTTPMethod))
	if method == "" {
		method = http.MethodGet
	}

	headers, err := b.RenderKV(rule.Headers, ctx)
	if err != nil {
		return nil, err
	}
	params, err := b.RenderKV(rule.Params, ctx)
	if err != nil {
		return nil, err
	}

	return &Spec{
		Method:  method,
		URL:     url,
		Headers: headers,
		Params:  params,
	}, nil
}

// RenderKV renders a templated key/value list into a plain mapping.
func (b *Builder) RenderKV(entries []behavior.KV, ctx *render.Context) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		value, err := b.renderer.String(entry.Value, ctx)
		if err != nil {
			return nil, err
		}
		out[entry.Key] = value
	}
	return out, nil
}
