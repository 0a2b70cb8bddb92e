package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"basketbay/internal/models"
	"basketbay/internal/util"

	"go.uber.org/zap"
)

// HeaderIdempotencyKey lets the order service deduplicate retried submissions
const HeaderIdempotencyKey = "Idempotency-Key"

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Call    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Call, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Call, e.Status)
}

// Unwrap classifies the status into the storefront error taxonomy
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return models.ErrValidation
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusConflict:
		return models.ErrStateConflict
	default:
		return models.ErrNetwork
	}
}

// MessageOf returns the backend's own message for err, if it carried one.
func MessageOf(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

// Client issues JSON requests against the BasketBay backend. Every call is
// attempted once; there is no retry.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a backend client
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: scheme and host required", baseURL)
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}, nil
}

type request struct {
	call    string
	method  string
	path    string
	query   url.Values
	token   string
	headers map[string]string
	body    interface{}
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	start := time.Now()
	status := "error"
	defer func() {
		util.BackendRequestDuration.WithLabelValues(r.call, status).Observe(time.Since(start).Seconds())
	}()

	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimRight(c.baseURL.Path, "/") + r.path})
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", r.call, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", r.call, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed",
			zap.String("call", r.call),
			zap.String("url", u.String()),
			zap.Error(err))
		return fmt.Errorf("%s: %w: %v", r.call, models.ErrNetwork, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: %w: reading response: %v", r.call, models.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		msg := envelope.Message
		if msg == "" {
			msg = envelope.Error
		}
		return &StatusError{Call: r.call, Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: malformed response: %v", r.call, models.ErrNetwork, err)
	}
	return nil
}

// isJSONArray reports whether raw holds a top-level JSON array.
func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
