// Package catalog is the client for the remote storefront REST API: product listing and detail,
// admin product management, and the order endpoints.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	productsPath      = "/user/getAllProducts"
	productPath       = "/products/"
	adminProductsPath = "/user/admin/products"
	ordersPath        = "/api/orders"

	maxBodySize  = 10 << 20 // 10MB
	maxErrorBody = 512
)

type Config struct {
	BaseURL string
	Timeout time.Duration

	// circuit breaker: consecutive failures before opening, and how long it stays open
	MaxFailures uint32
	OpenTimeout time.Duration
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	group   singleflight.Group
	timeout time.Duration
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("catalog base URL %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:     zerolog.Nop(),
		timeout: cfg.Timeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "catalog",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c, nil
}

// countsAsSuccess keeps client-side outcomes (4xx, caller cancellation) from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *domain.StatusError
	if errors.As(err, &se) {
		return se.StatusCode < http.StatusInternalServerError
	}
	return false
}

// PictureURL resolves a product picture reference against the catalog host.
func (c *Client) PictureURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return ref
	}
	return c.baseURL.ResolveReference(u).String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// do sends req through the circuit breaker and returns the body of a 2xx response.
// Transport failures and non-2xx statuses both match domain.ErrNetwork.
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNetwork, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("%s: read body: %w: %w", op, domain.ErrNetwork, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := strings.TrimSpace(string(data))
			if len(msg) > maxErrorBody {
				msg = msg[:maxErrorBody]
			}
			return nil, &domain.StatusError{Op: op, StatusCode: resp.StatusCode, Body: msg}
		}
		return data, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%s: %w: %w", op, domain.ErrNetwork, err)
	}

	ev := c.log.Debug()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Str("op", op).
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Dur("duration", time.Since(start)).
		Msg("catalog request")

	return body, err
}
