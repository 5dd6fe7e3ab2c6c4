package lightspeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/config"
	"golang.org/x/time/rate"
)

// ErrNoCredentials is returned when the client has no token to present.
var ErrNoCredentials = errors.New("lightspeed: token and business id are required")

// UpstreamError is a non-2xx answer from the POS API.
type UpstreamError struct {
	Status int
	Body   string
	URL    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("lightspeed: HTTP %d from %s", e.Status, e.URL)
}

// Strategy produces the credential headers for one way of presenting the token.
type Strategy struct {
	Name    string
	Headers func(token string) http.Header
}

// Strategies lists the accepted credential shapes in the order they are tried.
var Strategies = []Strategy{
	{Name: "x-token", Headers: func(token string) http.Header {
		return http.Header{"X-Token": {token}}
	}},
	{Name: "bearer", Headers: func(token string) http.Header {
		return http.Header{"Authorization": {"Bearer " + token}}
	}},
	{Name: "api-key", Headers: func(token string) http.Header {
		return http.Header{"X-Api-Key": {token}}
	}},
}

type operatorKey struct{}

// WithOperator overrides the operator header for calls made with ctx.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

func operatorFrom(ctx context.Context, fallback string) string {
	if op, ok := ctx.Value(operatorKey{}).(string); ok && op != "" {
		return op
	}
	return fallback
}

// Client talks to the POS API.
type Client struct {
	cfg        config.LightspeedConfig
	http       *http.Client
	limiter    *rate.Limiter
	strategies []Strategy
	logger     logrus.FieldLogger
}

// NewClient creates a Client. A non-positive rate disables throttling.
func NewClient(cfg config.LightspeedConfig, logger logrus.FieldLogger) *Client {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := int(cfg.RatePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:        cfg,
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		strategies: Strategies,
		logger:     logger.WithField("module", "lightspeed"),
	}
}

// get issues a GET to path relative to the base URL, trying each credential
// strategy until one gets a 2xx answer. The last failure is returned when none do.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.cfg.Token == "" || c.cfg.BusinessID == "" {
		return nil, ErrNoCredentials
	}
	endpoint := c.cfg.BaseURL + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	for _, s := range c.strategies {
		body, err := c.do(ctx, endpoint, s)
		if err == nil {
			c.logger.WithFields(logrus.Fields{"strategy": s.Name, "path": path}).Debug("upstream call succeeded")
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WithFields(logrus.Fields{"strategy": s.Name, "path": path}).WithError(err).Debug("upstream call failed")
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint string, s Strategy) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Business-Id", c.cfg.BusinessID)
	if op := operatorFrom(ctx, c.cfg.Operator); op != "" {
		req.Header.Set("X-Operator-Id", op)
	}
	for k, v := range s.Headers(c.cfg.Token) {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lightspeed: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lightspeed: read %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body)), URL: endpoint}
	}
	return body, nil
}

// unwrapList returns the first list found under keys, or the document itself
// when it is a bare array.
func unwrapList(body []byte, keys ...string) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("lightspeed: decode response: %w", err)
	}
	for _, k := range keys {
		raw, ok := envelope[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}
	return nil, nil
}
