package service

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

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"libseat-cli/session"
)

const (
	defaultBaseURL     = "http://localhost:8000"
	defaultUserAgent   = "libseat-cli"
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
	defaultRetryCap    = 1200 * time.Millisecond
	defaultRateLimit   = 8
	defaultRateBurst   = 4
)

// ErrMalformedResponse is returned when a response body does not have the
// shape the endpoint promises.
var ErrMalformedResponse = errors.New("malformed response")

// Client wraps HTTP access to the seat booking API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	creds       session.Credentials
	limiter     *rate.Limiter
	logger      *zap.Logger
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRateLimit paces outgoing requests. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if strings.TrimSpace(userAgent) != "" {
			c.userAgent = userAgent
		}
	}
}

// APIError is returned when the booking API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
	Detail     string
}

func (e *APIError) Error() string {
	if e == nil {
		return "booking api error"
	}
	if e.Detail != "" {
		return fmt.Sprintf("booking api error: %s: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("booking api error: %s: %s", e.Status, e.Body)
}

// Message is the text best suited to show a user.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Body != "" {
		return e.Body
	}
	return e.Status
}

// IsNotFound reports whether the error represents a 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict reports whether the API refused a booking because the seat is
// taken for an overlapping window.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == code
	}
	return false
}

// NewClient creates a new API client. An empty baseURL uses the local
// default; creds may be nil for unauthenticated calls.
func NewClient(baseURL string, creds session.Credentials, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: 12 * time.Second},
		baseURL:     baseURL,
		userAgent:   defaultUserAgent,
		creds:       creds,
		limiter:     rate.NewLimiter(defaultRateLimit, defaultRateBurst),
		logger:      zap.NewNop(),
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		retryCap:    defaultRetryCap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out, c.maxAttempts)
}

// postJSON is never retried: a repeated POST could create a second booking.
func (c *Client) postJSON(ctx context.Context, endpoint string, in any, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, in, out, 1)
}

func (c *Client) do(ctx context.Context, method string, endpoint string, in any, out any, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		requestID := uuid.NewString()
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.creds != nil {
			if token, ok := c.creds.BearerToken(); ok {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}

		c.logger.Debug("api request",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Int("attempt", attempt),
		)

		res, err := c.httpClient.Do(req)
		if err != nil {
			if c.shouldRetryNetworkError(err) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return fmt.Errorf("request failed: %w", err)
		}

		if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
			snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
			_ = res.Body.Close()

			apiErr := &APIError{
				StatusCode: res.StatusCode,
				Status:     res.Status,
				Endpoint:   endpoint,
				Body:       strings.TrimSpace(string(snippet)),
				Detail:     errorDetail(snippet),
			}
			c.logger.Debug("api error",
				zap.String("request_id", requestID),
				zap.Int("status", res.StatusCode),
				zap.String("detail", apiErr.Detail),
			)
			if c.shouldRetryStatus(res.StatusCode) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return apiErr
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
			return nil
		}
		dec := json.NewDecoder(res.Body)
		err = dec.Decode(out)
		_ = res.Body.Close()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode response from %s: %w", endpoint, err)
		}
		return nil
	}

	return errors.New("request failed after retries")
}

// errorDetail extracts the {"detail": "..."} message the API uses for errors.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Detail)
}

func (c *Client) shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (c *Client) shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) waitRetry(ctx context.Context, attempt int) error {
	delay := c.retryDelay(attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.retryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	cap := c.retryCap
	if cap <= 0 {
		cap = defaultRetryCap
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= cap/2 {
			return cap
		}
		delay *= 2
	}
	if delay > cap {
		return cap
	}
	return delay
}
