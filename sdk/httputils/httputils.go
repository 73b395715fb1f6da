package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rnative/rnative-client/sdk/common"
)

const maxErrorBody = 64 << 10

// Transport sends requests to the compute service rooted at a base endpoint
// such as http://localhost/api/compute.
type Transport struct {
	endpoint   string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	userAgent  string
}

// Option customizes a Transport
type Option func(*Transport)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = client
	}
}

// WithRetries sets how many times an idempotent read is retried after a
// transport failure, and the pause between attempts.
func WithRetries(retries int, delay time.Duration) Option {
	return func(t *Transport) {
		t.retries = retries
		t.retryDelay = delay
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(t *Transport) {
		t.userAgent = userAgent
	}
}

// NewTransport returns a Transport for the given endpoint. The endpoint must
// be an absolute http or https URL.
func NewTransport(endpoint string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("unable to parse endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must use http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}

	t := &Transport{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{CheckRedirect: nil},
		retryDelay: time.Second,
		userAgent:  common.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Endpoint returns the base endpoint without a trailing slash.
func (t *Transport) Endpoint() string {
	return t.endpoint
}

// Path joins path segments, escaping each one so that file names containing
// reserved characters stay a single segment.
func Path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

// CreateRequest returns a new HTTP request against endpoint/path. An empty
// path addresses the endpoint itself.
func (t *Transport) CreateRequest(ctx context.Context, method string, path string, body io.Reader, contentType string) (*http.Request, error) {
	target := t.endpoint
	if path != "" {
		target = t.endpoint + "/" + strings.TrimLeft(path, "/")
	}

	request, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}

	request.Header.Set(common.HeaderRequestID, uuid.NewString())
	request.Header.Set("User-Agent", t.userAgent)
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}

	return request, nil
}

// SendRequest sends the given request and verifies the response's status
// code. It returns the full response body on success.
func (t *Transport) SendRequest(request *http.Request) ([]byte, error) {
	begin := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"method":     request.Method,
		"url":        request.URL.String(),
		"request_id": request.Header.Get(common.HeaderRequestID),
	})

	resp, err := t.httpClient.Do(request)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, &TransportError{Method: request.Method, URL: request.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		content, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.WithField("status", resp.StatusCode).Debug("request rejected")
		return nil, &ServerError{
			Method:     request.Method,
			URL:        request.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(content)),
		}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{
			Method: request.Method,
			URL:    request.URL.String(),
			Err:    fmt.Errorf("unable to read response body: %w", err),
		}
	}

	log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"bytes":       len(content),
		"duration_ms": time.Since(begin).Milliseconds(),
	}).Debug("request completed")

	return content, nil
}

// Get reads endpoint/path. Transport failures are retried up to the
// configured count; server errors are returned at once.
func (t *Transport) Get(ctx context.Context, path string) ([]byte, error) {
	pacer := rate.NewLimiter(rate.Every(t.retryDelay), 1)

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		if err := pacer.Wait(ctx); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}
		if attempt > 0 {
			logrus.Warnf("Retrying GET %s (attempt %d of %d) after: %s", path, attempt+1, t.retries+1, lastErr)
		}

		request, err := t.CreateRequest(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return nil, err
		}

		content, err := t.SendRequest(request)
		if err == nil {
			return content, nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// GetJSON reads endpoint/path and decodes the JSON body into v.
func (t *Transport) GetJSON(ctx context.Context, operation string, path string, v interface{}) error {
	content, err := t.Get(ctx, path)
	if err != nil {
		return err
	}

	return DecodeJSON(operation, content, v)
}

// PostJSON marshals body, posts it to endpoint/path exactly once and returns
// the response body. It is never retried.
func (t *Transport) PostJSON(ctx context.Context, path string, body interface{}) ([]byte, error) {
	content, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal JSON: %w", err)
	}

	request, err := t.CreateRequest(ctx, http.MethodPost, path, bytes.NewReader(content), "application/json")
	if err != nil {
		return nil, err
	}

	return t.SendRequest(request)
}

// DecodeJSON decodes a response body into v, reporting a malformed body as a
// ProtocolError.
func DecodeJSON(operation string, content []byte, v interface{}) error {
	if err := json.Unmarshal(content, v); err != nil {
		return &ProtocolError{Operation: operation, Reason: "malformed JSON body", Err: err}
	}

	return nil
}
