package httpapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) RunOnce(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, es *EchoServer, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	es := NewEchoServer(nil, nil)
	if rec := get(t, es, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	es := NewEchoServer(nil, nil)
	if rec := get(t, es, http.MethodGet, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before MarkReady = %d, want 503", rec.Code)
	}
	es.MarkReady()
	if rec := get(t, es, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("readyz after MarkReady = %d, want 200", rec.Code)
	}
}

func TestSyncTrigger(t *testing.T) {
	es := NewEchoServer(runnerFunc(func(context.Context) error { return nil }), nil)
	if rec := get(t, es, http.MethodPost, "/sync"); rec.Code != http.StatusOK {
		t.Fatalf("sync = %d, want 200", rec.Code)
	}

	es = NewEchoServer(runnerFunc(func(context.Context) error { return errors.New("boom") }), nil)
	if rec := get(t, es, http.MethodPost, "/sync"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("failed sync = %d, want 500", rec.Code)
	}

	es = NewEchoServer(nil, nil)
	if rec := get(t, es, http.MethodPost, "/sync"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured sync = %d, want 503", rec.Code)
	}
}
