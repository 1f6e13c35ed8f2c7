// Package kaiten is a client for a Kaiten-style board API: bearer-token
// JSON over HTTP with rate-limit-aware retry, plus a lazy cache for
// select-field option values.
package kaiten

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Client is a high-level client for the board API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	policy     RetryPolicy
}

// ClientOption configures the Client during construction.
type ClientOption func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
	policy     *RetryPolicy
}

// New creates a Client for the given API instance. The bearerToken is
// sent as an Authorization header on every request.
func New(baseURL, bearerToken string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("kaiten: baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// Copy the supplied client so setting the timeout never mutates a
	// client shared with other consumers.
	httpClient := &http.Client{}
	if cfg.httpClient != nil {
		clone := *cfg.httpClient
		httpClient = &clone
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	policy := DefaultRetryPolicy()
	if cfg.policy != nil {
		policy = *cfg.policy
	}

	return &Client{
		baseURL:    baseURL,
		token:      bearerToken,
		httpClient: httpClient,
		logger:     logger,
		policy:     policy,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client, bounding each call
// including all internal retries of a single request.
func WithTimeout(d time.Duration) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.timeout = d
		return nil
	}
}

// WithRetryPolicy overrides the rate-limit retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.policy = &p
		return nil
	}
}

// doJSON executes a request, retrying on 429 per the client's policy, and
// decodes the JSON response into dst. Non-429 error statuses return an
// *APIError without retry; transport failures are wrapped and returned
// immediately as well.
func (c *Client) doJSON(ctx context.Context, method, path, operation string, query url.Values, body, dst any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", operation, err)
		}
	}

	backoff := newRateLimitBackoff(c.policy)
	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
		if err != nil {
			return fmt.Errorf("%s: create request: %w", operation, err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.DebugContext(ctx, "API request",
			"operation", operation, "method", method, "url", u, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s: do request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			rateErr := newAPIError(operation, resp.StatusCode, "rate limited")
			if delay, more := backoff.decide(resp); more {
				c.logger.WarnContext(ctx, "rate limited, backing off",
					"operation", operation, "status", resp.StatusCode,
					"attempt", attempt, "maxAttempts", c.policy.MaxRetries+1,
					"delay", delay, "retryAfter", resp.Header.Get("Retry-After"))
			} else {
				c.logger.WarnContext(ctx, "rate limit retry budget exhausted",
					"operation", operation, "status", resp.StatusCode, "attempt", attempt)
			}
			return retry.RetryableError(rateErr)
		}

		c.logger.DebugContext(ctx, "API response",
			"operation", operation, "status", resp.StatusCode, "attempt", attempt)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			msg := strings.TrimSpace(string(respBody))
			if msg == "" {
				msg = resp.Status
			}
			return newAPIError(operation, resp.StatusCode, msg)
		}

		if dst != nil {
			if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
				return fmt.Errorf("%s: decode response: %w", operation, err)
			}
		}
		return nil
	})
}

// GetCard fetches a single card by id.
func (c *Client) GetCard(ctx context.Context, cardID int64) (*Card, error) {
	var card Card
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/cards/%d", cardID), "get card", nil, nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard applies a partial update to a card.
func (c *Client) UpdateCard(ctx context.Context, cardID int64, update CardUpdate) error {
	return c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/cards/%d", cardID), "update card", nil, update, nil)
}

// ListCards returns cards, optionally filtered by board and/or space.
// Zero ids mean no filter.
func (c *Client) ListCards(ctx context.Context, boardID, spaceID int64) ([]Card, error) {
	query := url.Values{}
	if boardID > 0 {
		query.Set("board_id", fmt.Sprintf("%d", boardID))
	}
	if spaceID > 0 {
		query.Set("space_id", fmt.Sprintf("%d", spaceID))
	}

	var cards []Card
	if err := c.doJSON(ctx, http.MethodGet, "/cards", "list cards", query, nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetSelectValues fetches the choices of a select field. The endpoint's
// response shape varies (bare array, or an object wrapping the array
// under one of several keys); the result is normalized to []Option.
func (c *Client) GetSelectValues(ctx context.Context, propertyID int64) ([]Option, error) {
	var raw any
	path := fmt.Sprintf("/company/custom-properties/%d/select-values", propertyID)
	if err := c.doJSON(ctx, http.MethodGet, path, "get select values", nil, nil, &raw); err != nil {
		return nil, err
	}
	return parseSelectValues(raw), nil
}
