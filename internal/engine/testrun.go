package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/syncbridge/syncbridge/internal/httpexec"
	"github.com/syncbridge/syncbridge/internal/render"
)

// CaptureTestResponse fetches the first list page under full authorization
// and writes the response body to dir for inspection. The capture runs on a
// scratch copy of the rendering context so a later extraction pass starts
// from a clean pagination state. It returns the path of the written file.
func (e *Engine) CaptureTestResponse(ctx context.Context, rctx *render.Context, dir string) (string, error) {
	resp, err := e.firstListPage(ctx, rctx)
	if err != nil {
		return "", err
	}

	data := []byte(resp.Text)
	if parsed := httpexec.ParseObject(resp.Text); parsed != nil {
		if pretty, err := json.MarshalIndent(parsed, "", "  "); err == nil {
			data = pretty
		}
	} else {
		e.logger.Warn("test response body is not valid json, saving raw text")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create test response dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("connector-%s-response.json", e.cfg.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save test response: %w", err)
	}
	e.logger.Info("saved test response", "path", path)
	return path, nil
}

// TestConnection performs one authorized list request and reports whether it
// succeeded. The response body is checked for an embedded provider failure
// but is otherwise discarded.
func (e *Engine) TestConnection(ctx context.Context, rctx *render.Context) error {
	resp, err := e.firstListPage(ctx, rctx)
	if err != nil {
		return err
	}
	if m, ok := httpexec.ParseObject(resp.Text).(map[string]any); ok {
		if msg, found := m[shimErrorKey]; found {
			return fmt.Errorf("%v", msg)
		}
	}
	return nil
}

// firstListPage executes the list rule once against a scratch context seeded
// like iteration zero, without pagination extras.
func (e *Engine) firstListPage(ctx context.Context, rctx *render.Context) (*httpexec.Response, error) {
	scratch := render.NewContext()
	scratch.Update(rctx.Env())
	scratch.Update(map[string]any{
		"iteration":             0,
		"list_response":         map[string]any{},
		"list_response_headers": map[string]string{},
		"list_response_links":   map[string]map[string]string{},
	})

	spec, err := e.builder.Build(e.cfg.ListBehavior.Rule, scratch)
	if err != nil {
		return nil, err
	}
	if err := e.authorizer.Attach(ctx, spec, scratch); err != nil {
		return nil, err
	}
	return e.executor.Execute(ctx, spec)
}
