// Package client is the HTTP client for the CertifyChain API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/certifychain/internal/logger"
	"github.com/wolfeidau/certifychain/internal/session"
	"github.com/wolfeidau/certifychain/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

const tracerName = "github.com/wolfeidau/certifychain/internal/client"

// Config holds client configuration
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheDir  string
	MaxTries  uint
	RetryWait time.Duration

	// Transport is the innermost RoundTripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:8000",
		Timeout:   30 * time.Second,
		MaxTries:  3,
		RetryWait: 250 * time.Millisecond,
	}
}

// Client calls the CertifyChain API.
//
// Requests pass through AuthTransport, then the HTTP cache, then request
// logging. Session calls (FetchProfile, InvalidateToken) carry their
// credential explicitly; everything else relies on the attached one.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	auth       *AuthTransport
	cache      PurgeableCache
	maxTries   uint
	retryWait  time.Duration
	metrics    *telemetry.Metrics
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: must be an absolute http(s) URL", cfg.BaseURL)
	}

	if cfg.MaxTries == 0 {
		cfg.MaxTries = 1
	}

	caching, cache := NewCachingTransport(cfg.CacheDir, logger.NewHTTPRequests(cfg.Transport))
	auth := NewAuthTransport(caching)

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: auth,
		},
		auth:      auth,
		cache:     cache,
		maxTries:  cfg.MaxTries,
		retryWait: cfg.RetryWait,
		metrics:   telemetry.GetMetrics(),
	}, nil
}

// Auth returns the shared credential slot for the session store.
func (c *Client) Auth() *AuthTransport {
	return c.auth
}

// PurgeCache drops every cached API response. The session store calls it
// when the credential those responses were fetched with is cleared.
func (c *Client) PurgeCache() error {
	if err := c.cache.Purge(); err != nil {
		return fmt.Errorf("failed to purge response cache: %w", err)
	}
	return nil
}

// SignIn exchanges email and password for a credential.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	body := map[string]string{"email": email, "password": password}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/signin/", nil, "", body, &resp); err != nil {
		return nil, err
	}

	return validAuthResponse(&resp)
}

// SignUp registers an account and returns its credential.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/signup/", nil, "", req, &resp); err != nil {
		return nil, err
	}

	return validAuthResponse(&resp)
}

// InvalidateToken asks the API to revoke token.
func (c *Client) InvalidateToken(ctx context.Context, token session.Credential) error {
	return c.do(ctx, http.MethodPost, "/api/logout/", nil, token, struct{}{}, nil)
}

// FetchProfile returns the profile for token.
func (c *Client) FetchProfile(ctx context.Context, token session.Credential) (*ProfileResponse, error) {
	var resp ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/api/profile/", nil, token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Profile == nil {
		return nil, fmt.Errorf("%w: profile missing", ErrMalformedResponse)
	}
	return &resp, nil
}

// Dashboard returns the signed in user's dashboard.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var resp Dashboard
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/", nil, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Certificates lists the signed in user's certificates, newest first.
func (c *Client) Certificates(ctx context.Context, filter CertificateFilter) ([]Certificate, error) {
	query := url.Values{}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Domain != "" {
		query.Set("domain", filter.Domain)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}

	var resp struct {
		Certificates []Certificate `json:"certificates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/certificates/", query, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Certificates, nil
}

// Leaderboard returns the top users, optionally within one domain.
func (c *Client) Leaderboard(ctx context.Context, domain string) ([]LeaderboardEntry, error) {
	query := url.Values{}
	if domain != "" {
		query.Set("domain", domain)
	}

	var resp struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard/", query, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Leaderboard, nil
}

func validAuthResponse(resp *AuthResponse) (*AuthResponse, error) {
	if resp.Token == "" || resp.User == nil {
		return nil, fmt.Errorf("%w: token and user are required", ErrMalformedResponse)
	}
	return resp, nil
}

// do sends one request and decodes a JSON response into out. GET requests
// are retried on transport errors and temporary API errors; other methods
// are attempted once.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token session.Credential, body, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	attempt := func() (struct{}, error) {
		err := c.roundTrip(ctx, method, endpoint, token, payload, out)
		var apiErr *APIError
		if (errors.As(err, &apiErr) && !apiErr.Temporary()) || errors.Is(err, ErrMalformedResponse) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	tries := uint(1)
	if method == http.MethodGet {
		tries = c.maxTries
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug().Err(err).Str("path", path).Dur("retryIn", next).Msg("retrying api call")
		}),
	)
	return err
}

func (c *Client) roundTrip(ctx context.Context, method string, endpoint *url.URL, token session.Credential, payload []byte, out any) (err error) {
	requestID := uuid.NewString()

	ctx, span := otel.Tracer(tracerName).Start(ctx, method+" "+endpoint.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", endpoint.Path),
			attribute.String("request.id", requestID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		setExplicitAuth(req, string(token))
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordAPIRequest(ctx, method, 0, float64(time.Since(started).Milliseconds()))
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordAPIRequest(ctx, method, resp.StatusCode, float64(time.Since(started).Milliseconds()))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}
