// Package gateway wraps the external render/extraction service that turns a
// listing address into a structured document.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"hostscore/internal/config"
	"hostscore/internal/model"

	"github.com/rs/zerolog"
)

var (
	// ErrRenderFailed means the renderer could not produce a document.
	// Retryable upstream; surfaced as a 502-class failure.
	ErrRenderFailed = errors.New("renderer failed to produce a document")
	// ErrMalformedDocument means the renderer answered with a shape we do
	// not understand. Not retryable.
	ErrMalformedDocument = errors.New("renderer returned a malformed document")
)

// Client calls the renderer over HTTP. Concurrency is capped by a semaphore
// sized from config; transient failures are retried with exponential backoff
// before falling back to the renderer's lite fetch mode.
type Client struct {
	baseURL        string
	client         *http.Client
	sem            chan struct{}
	maxRetries     int
	backoffInitial time.Duration
	backoffMax     time.Duration
	renderTimeout  time.Duration
	logger         zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Client {
	sessions := cfg.RendererMaxSessions
	if sessions < 1 {
		sessions = 1
	}
	return &Client{
		baseURL: cfg.RendererBaseURL,
		client: &http.Client{
			// Per-attempt deadlines come from the request context.
		},
		sem:            make(chan struct{}, sessions),
		maxRetries:     cfg.RenderMaxRetries,
		backoffInitial: time.Duration(cfg.RenderBackoffInitialMs) * time.Millisecond,
		backoffMax:     time.Duration(cfg.RenderBackoffMaxMs) * time.Millisecond,
		renderTimeout:  time.Duration(cfg.RenderTimeoutSec) * time.Second,
		logger:         logger.With().Str("service", "RenderGateway").Logger(),
	}
}

// Render fetches the structured document for a normalized address. Transient
// renderer errors are retried with backoff; once retries are exhausted a
// single lite-mode fetch is attempted before giving up.
func (c *Client) Render(ctx context.Context, address string) (*model.ListingDocument, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, ctx.Err())
	}

	backoff := c.backoffInitial
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		doc, err := c.fetch(ctx, address, false)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, ErrMalformedDocument) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("address", address).Msg("Render attempt failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrRenderFailed, ctx.Err())
		}
		backoff *= 2
		if backoff > c.backoffMax {
			backoff = c.backoffMax
		}
	}

	c.logger.Warn().Err(lastErr).Str("address", address).Msg("Retries exhausted, trying lite fetch")
	doc, err := c.fetch(ctx, address, true)
	if err == nil {
		return doc, nil
	}
	return nil, fmt.Errorf("render %s: %w", address, lastErr)
}

func (c *Client) fetch(ctx context.Context, address string, lite bool) (*model.ListingDocument, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.renderTimeout)
	defer cancel()

	q := url.Values{"address": {address}}
	if lite {
		q.Set("mode", "lite")
	}
	endpoint := fmt.Sprintf("%s/render?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRenderFailed, resp.StatusCode, string(body))
	}

	var doc model.ListingDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.Title == "" && doc.Description == "" && len(doc.Photos) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrMalformedDocument)
	}
	if doc.Address == "" {
		doc.Address = address
	}
	return &doc, nil
}
