package service

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

	"github.com/google/uuid"
	"github.com/jjenkins/orgadmin/internal/model"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	maxPages       = 1000
	requestIDKey   = "X-Request-ID"
)

// APIError is a non-2xx response from the backend
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is an APIError with status 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ClientOptions configures an APIClient
type ClientOptions struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	RPS            float64
	Burst          int
	MaxRetries     int
	InitialBackoff time.Duration
}

// APIClient handles communication with the organization backend API
type APIClient struct {
	baseURL    *url.URL
	token      string
	client     *http.Client
	limiter    *rate.Limiter
	parser     *Parser
	maxRetries int
	backoff    time.Duration
}

// NewAPIClient creates a new backend API client
func NewAPIClient(opts ClientOptions) (*APIClient, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = maxRetries
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = initialBackoff
	}

	return &APIClient{
		baseURL:    base,
		token:      strings.TrimSpace(opts.Token),
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		parser:     NewParser(),
		maxRetries: retries,
		backoff:    backoff,
	}, nil
}

func (c *APIClient) endpoint(path string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	return u.String()
}

// FetchUnits retrieves every unit, following pagination
func (c *APIClient) FetchUnits(ctx context.Context) ([]model.UnitRecord, error) {
	var units []model.UnitRecord
	err := c.fetchAll(ctx, "/units/", func(items json.RawMessage) error {
		page, err := c.parser.ParseUnits(items)
		units = append(units, page...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch units: %w", err)
	}
	return units, nil
}

// FetchPositions retrieves every position, following pagination
func (c *APIClient) FetchPositions(ctx context.Context) ([]model.PositionRecord, error) {
	var positions []model.PositionRecord
	err := c.fetchAll(ctx, "/positions/", func(items json.RawMessage) error {
		page, err := c.parser.ParsePositions(items)
		positions = append(positions, page...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions: %w", err)
	}
	return positions, nil
}

// FetchRecruitmentSlots retrieves every recruitment slot, following pagination
func (c *APIClient) FetchRecruitmentSlots(ctx context.Context) ([]model.RecruitmentSlot, error) {
	var slots []model.RecruitmentSlot
	err := c.fetchAll(ctx, "/recruitment/slots/", func(items json.RawMessage) error {
		page, err := c.parser.ParseSlots(items)
		slots = append(slots, page...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recruitment slots: %w", err)
	}
	return slots, nil
}

// FetchMembers retrieves the unit membership list, following pagination
func (c *APIClient) FetchMembers(ctx context.Context) ([]model.MemberRecord, error) {
	var members []model.MemberRecord
	err := c.fetchAll(ctx, "/personnel/", func(items json.RawMessage) error {
		page, err := c.parser.ParseMembers(items)
		members = append(members, page...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}
	return members, nil
}

// fetchAll GETs path and every "next" page after it, handing each item array to fn
func (c *APIClient) fetchAll(ctx context.Context, path string, fn func(items json.RawMessage) error) error {
	next := c.endpoint(path)
	seen := make(map[string]bool)

	for pages := 0; next != ""; pages++ {
		if seen[next] || pages >= maxPages {
			return fmt.Errorf("pagination did not terminate at %s", next)
		}
		seen[next] = true

		body, err := c.fetchWithRetry(ctx, next)
		if err != nil {
			return err
		}

		items, nextURL, err := c.parser.Unwrap(body)
		if err != nil {
			return err
		}
		if err := fn(items); err != nil {
			return err
		}

		next, err = c.resolve(nextURL)
		if err != nil {
			return err
		}
	}

	return nil
}

// resolve turns a possibly relative next-page reference into an absolute URL
func (c *APIClient) resolve(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid next page URL %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(u).String(), nil
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry.
// Client errors other than 429 are returned without retrying.
func (c *APIClient) fetchWithRetry(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		body, status, err := c.send(ctx, http.MethodGet, target, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if status == http.StatusTooManyRequests || status >= 500 {
			lastErr = newAPIError(http.MethodGet, target, status, body)
			continue
		}
		if status < 200 || status >= 300 {
			return nil, newAPIError(http.MethodGet, target, status, body)
		}

		return body, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// send performs one rate-limited request and returns the body and status
func (c *APIClient) send(ctx context.Context, method, target string, payload any) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDKey, uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// do performs a single mutation request and decodes the response into out
func (c *APIClient) do(ctx context.Context, method, path string, payload, out any) error {
	target := c.endpoint(path)
	body, status, err := c.send(ctx, method, target, payload)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	if status < 200 || status >= 300 {
		return newAPIError(method, target, status, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s %s response: %w", method, target, err)
	}
	return nil
}

func newAPIError(method, target string, status int, body []byte) *APIError {
	detail := strings.TrimSpace(string(body))
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			detail = payload.Detail
		case payload.Error != "":
			detail = payload.Error
		}
	}
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &APIError{Method: method, URL: target, StatusCode: status, Detail: detail}
}
