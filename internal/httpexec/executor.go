// Package httpexec executes rendered call specifications against the external
// API and normalizes responses for template consumption.
package httpexec

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/syncbridge/syncbridge/internal/callspec"
)

const (
	defaultTimeout   = 120 * time.Second
	maxErrorBodySize = 1 << 20 // 1 MiB
	defaultUserAgent = "syncbridge"
)

// Response is the normalized result of one API call.
type Response struct {
	StatusCode int
	Text       string
	Headers    map[string]string
	Links      map[string]map[string]string
}

// StatusError reports a non-2xx response. It is distinguishable from transport
// errors so callers can branch on provider-side failures.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("api request failed: %s (url=%s)", e.Status, e.URL)
	}
	return fmt.Sprintf("api request failed: %s: %s (url=%s)", e.Status, truncate(body, 300), e.URL)
}

// Executor performs HTTP requests with a bounded timeout. A spec carrying a
// TLS config is executed over a transport cloned with that config.
type Executor struct {
	HTTP      *http.Client
	UserAgent string
}

func New() *Executor {
	return &Executor{
		HTTP:      &http.Client{Timeout: defaultTimeout},
		UserAgent: defaultUserAgent,
	}
}

// Execute performs the request described by the spec and returns the
// normalized response. Non-2xx statuses surface as *StatusError.
func (e *Executor) Execute(ctx context.Context, spec *callspec.Spec) (*Response, error) {
	endpoint, err := buildURL(spec)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.UserAgent)
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.clientFor(spec).Do(req)
	if err != nil {
		return nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        safeURL(endpoint),
			Body:       truncate(string(body), maxErrorBodySize),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Text:       string(body),
		Headers:    flattenHeaders(resp.Header),
		Links:      parseLinks(resp.Header.Values("Link")),
	}, nil
}

func (e *Executor) clientFor(spec *callspec.Spec) *http.Client {
	if spec.TLS == nil {
		return e.HTTP
	}

	base, _ := http.DefaultTransport.(*http.Transport)
	if prior, ok := e.HTTP.Transport.(*http.Transport); ok {
		base = prior
	}
	var transport http.RoundTripper
	if base != nil {
		cloned := base.Clone()
		cloned.TLSClientConfig = spec.TLS
		transport = cloned
	}
	return &http.Client{
		Timeout:   e.HTTP.Timeout,
		Transport: transport,
	}
}

func buildURL(spec *callspec.Spec) (string, error) {
	u, err := url.Parse(strings.TrimSpace(spec.URL))
	if err != nil {
		return "", fmt.Errorf("invalid behavior url: %w", err)
	}
	if len(spec.Params) > 0 {
		q := u.Query()
		for k, v := range spec.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

// parseLinks decodes RFC 5988 Link headers into a rel-keyed mapping so
// templates can follow cursor links like list_response_links.next.url.
func parseLinks(values []string) map[string]map[string]string {
	links := make(map[string]map[string]string)
	for _, header := range values {
		for _, part := range strings.Split(header, ",") {
			segments := strings.Split(strings.TrimSpace(part), ";")
			if len(segments) < 2 {
				continue
			}
			target := strings.TrimSpace(segments[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			link := map[string]string{"url": strings.Trim(target, "<>")}
			rel := ""
			for _, attr := range segments[1:] {
				key, value, ok := strings.Cut(strings.TrimSpace(attr), "=")
				if !ok {
					continue
				}
				value = strings.Trim(strings.TrimSpace(value), `"`)
				key = strings.ToLower(strings.TrimSpace(key))
				link[key] = value
				if key == "rel" {
					rel = value
				}
			}
			if rel != "" {
				links[rel] = link
			}
		}
	}
	return links
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func safeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.Path
}
