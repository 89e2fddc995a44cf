// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog talks to the remote catalog service: player lookups for a
// single piece of content and paged playlist browsing.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/streamres/internal/continuation"
	"github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/metrics"
	"github.com/ManuGH/streamres/internal/platform/httpx"
)

const (
	defaultClientName       = "WEB_REMIX"
	defaultClientVersion    = "1.20250101.01.00"
	defaultRateLimit        = 10
	defaultBurst            = 20
	defaultBreakerThreshold = 5
	defaultBreakerReset     = 30 * time.Second
	maxErrorBody            = 512
	maxResponseBody         = 8 << 20
)

// Config configures a Client. Zero values fall back to defaults.
type Config struct {
	BaseURL       string
	ClientName    string
	ClientVersion string

	// HTTP overrides the transport. When nil a client is built from Proxy.
	HTTP    *http.Client
	Proxy   httpx.ProxyConfig
	Timeout time.Duration

	RateLimit rate.Limit
	Burst     int

	BreakerThreshold int
	BreakerReset     time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	base          string
	clientName    string
	clientVersion string
	http          *http.Client
	limiter       *rate.Limiter
	breaker       *CircuitBreaker
	log           zerolog.Logger
}

// New builds a catalog client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("catalog: base url is required")
	}

	hc := cfg.HTTP
	if hc == nil {
		var err error
		hc, err = httpx.NewClient(httpx.Options{Timeout: cfg.Timeout, Proxy: cfg.Proxy, Traced: true})
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	threshold := cfg.BreakerThreshold
	if threshold == 0 {
		threshold = defaultBreakerThreshold
	}
	reset := cfg.BreakerReset
	if reset <= 0 {
		reset = defaultBreakerReset
	}

	c := &Client{
		base:          base,
		clientName:    firstNonEmpty(cfg.ClientName, defaultClientName),
		clientVersion: firstNonEmpty(cfg.ClientVersion, defaultClientVersion),
		http:          hc,
		limiter:       rate.NewLimiter(limit, burst),
		breaker:       NewCircuitBreaker(threshold, reset),
		log:           log.WithComponent("catalog"),
	}
	return c, nil
}

type clientContext struct {
	Client struct {
		ClientName    string `json:"clientName"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
}

type playerRequest struct {
	VideoID string        `json:"videoId"`
	Context clientContext `json:"context"`
}

type browseRequest struct {
	PlaylistID   string        `json:"playlistId,omitempty"`
	Continuation string        `json:"continuation,omitempty"`
	Context      clientContext `json:"context"`
}

func (c *Client) context() clientContext {
	var cc clientContext
	cc.Client.ClientName = c.clientName
	cc.Client.ClientVersion = c.clientVersion
	return cc
}

// Player performs a playability lookup for contentID.
func (c *Client) Player(ctx context.Context, contentID string) (*PlayerResponse, error) {
	var resp PlayerResponse
	body := playerRequest{VideoID: contentID, Context: c.context()}
	if err := c.post(ctx, "player", "/player", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Playlist fetches the first page of a playlist.
func (c *Client) Playlist(ctx context.Context, playlistID string) (continuation.Page[Track], error) {
	return c.browse(ctx, "playlist", browseRequest{PlaylistID: playlistID, Context: c.context()})
}

// Continuation fetches the page addressed by a continuation token.
func (c *Client) Continuation(ctx context.Context, token string) (continuation.Page[Track], error) {
	return c.browse(ctx, "continuation", browseRequest{Continuation: token, Context: c.context()})
}

func (c *Client) browse(ctx context.Context, op string, body browseRequest) (continuation.Page[Track], error) {
	var resp browseResponse
	if err := c.post(ctx, op, "/browse", body, &resp); err != nil {
		return continuation.Page[Track]{}, err
	}
	return continuation.Page[Track]{Items: resp.Items, Continuation: resp.Continuation}, nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("catalog: encode %s request: %w", op, err)
	}

	start := time.Now()
	err = c.breaker.Execute(func() error {
		return c.do(ctx, op, path, payload, out)
	})
	outcome := "success"
	if err != nil {
		outcome = outcomeLabel(err)
	}
	metrics.RecordCatalogRequest(op, outcome)

	ev := c.log.Debug()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Str(log.FieldEvent, "catalog.request").
		Str("operation", op).
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("catalog request finished")

	if errors.Is(err, ErrCircuitOpen) {
		return &Error{Sentinel: ErrCircuitOpen, Operation: op}
	}
	return err
}

func (c *Client) do(ctx context.Context, op, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return &Error{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		var cause error
		if s := strings.TrimSpace(string(snippet)); s != "" {
			cause = errors.New(s)
		}
		return &Error{Sentinel: ErrUpstreamStatus, Operation: op, Status: res.StatusCode, Err: cause}
	}

	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBody)).Decode(out); err != nil {
		return &Error{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	return nil
}

// BreakerState exposes the circuit breaker state for health checks.
func (c *Client) BreakerState() State {
	return c.breaker.State()
}

func outcomeLabel(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		switch ce.Code() {
		case "circuit_open", "decode", "transport":
			return ce.Code()
		default:
			return "status"
		}
	}
	if errors.Is(err, ErrCircuitOpen) {
		return "circuit_open"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "transport"
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
