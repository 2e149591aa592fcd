package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"hostscore/internal/config"

	"github.com/rs/zerolog"
)

func testClient(baseURL string) *Client {
	return New(&config.Config{
		RendererBaseURL:        baseURL,
		RendererMaxSessions:    2,
		RenderTimeoutSec:       2,
		RenderMaxRetries:       2,
		RenderBackoffInitialMs: 1,
		RenderBackoffMaxMs:     5,
	}, zerolog.Nop())
}

func TestRenderReturnsDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") == "" {
			t.Errorf("expected address query param")
		}
		w.Write([]byte(`{"title":"Sunny loft","description":"Bright and airy.","photos":[]}`))
	}))
	defer srv.Close()

	doc, err := testClient(srv.URL).Render(context.Background(), "https://www.airbnb.com/rooms/1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if doc.Title != "Sunny loft" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	if doc.Address != "https://www.airbnb.com/rooms/1" {
		t.Fatalf("expected address backfilled, got %q", doc.Address)
	}
}

func TestRenderRetriesThenLiteFallback(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("mode") == "lite" {
			w.Write([]byte(`{"title":"Lite","description":"fallback"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	doc, err := testClient(srv.URL).Render(context.Background(), "addr")
	if err != nil {
		t.Fatalf("expected lite fallback to succeed, got %v", err)
	}
	if doc.Title != "Lite" {
		t.Fatalf("expected lite document, got %q", doc.Title)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 2 full attempts plus 1 lite, got %d calls", got)
	}
}

func TestRenderMalformedDocumentNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"title":"","description":"","photos":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Render(context.Background(), "addr")
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestRenderAllAttemptsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Render(context.Background(), "addr")
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("expected ErrRenderFailed, got %v", err)
	}
}
