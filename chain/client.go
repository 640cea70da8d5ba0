package chain

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

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/jonwraymond/abicache/observe"
	"github.com/jonwraymond/abicache/resilience"
)

const (
	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is sent unless WithUserAgent overrides it.
	DefaultUserAgent = "abicache"

	// maxResponseBytes caps response bodies; the largest mainnet ABIs are a
	// few hundred KiB.
	maxResponseBytes = 16 << 20
)

// Client talks to a nodeos /v1/chain endpoint.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every call honors ctx cancellation and deadlines.
// - Errors: every error matches ErrTransport; non-2xx answers are *APIError.
type Client struct {
	base      *url.URL
	http      *retryablehttp.Client
	executor  *resilience.Executor
	logger    observe.Logger
	userAgent string
	apiHeader string
	apiKey    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

// WithRetry enables up to retryMax retries of connection errors, 429 and
// 5xx answers, backing off between waitMin and waitMax.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = retryMax
		if waitMin > 0 {
			c.http.RetryWaitMin = waitMin
		}
		if waitMax > 0 {
			c.http.RetryWaitMax = waitMax
		}
	}
}

// WithAPIKey sends key in header on every request. Providers such as
// hosted API gateways require one.
func WithAPIKey(header, key string) Option {
	return func(c *Client) {
		c.apiHeader = header
		c.apiKey = key
	}
}

// WithExecutor runs every request through e.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = e
	}
}

// WithLogger sets the logger for requests and retries.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client for the node at baseURL, e.g.
// "https://eos.greymass.com".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: url: %w", ErrInvalidConfig, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: url %q must be absolute http(s)", ErrInvalidConfig, baseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		base:      base,
		http:      rc,
		logger:    observe.NoopLogger(),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	rc.Logger = retryLogger{c.logger}
	return c, nil
}

// BaseURL returns the node URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// call posts body to /v1/chain/<method> through the executor and returns
// the parsed response.
func (c *Client) call(ctx context.Context, method string, body any) (gjson.Result, error) {
	var result gjson.Result
	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.post(ctx, method, body)
		return err
	})
	if err != nil && !errors.Is(err, ErrTransport) {
		err = fmt.Errorf("%w: %s: %w", ErrTransport, method, err)
	}
	return result, err
}

func (c *Client) post(ctx context.Context, method string, body any) (gjson.Result, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return gjson.Result{}, fmt.Errorf("%w: encode %s request: %w", ErrTransport, method, err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("v1", "chain", method).String(), bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %s: %w", ErrTransport, method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set(c.apiHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "chain request failed",
			observe.Field{Key: "method", Value: method},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return gjson.Result{}, fmt.Errorf("%w: %s: %w", ErrTransport, method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: read %s response: %w", ErrTransport, method, err)
	}

	c.logger.Debug(ctx, "chain request",
		observe.Field{Key: "method", Value: method},
		observe.Field{Key: "status", Value: resp.StatusCode},
		observe.Field{Key: "bytes", Value: len(data)},
		observe.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, parseAPIError(resp.StatusCode, data)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: %w: %s returned non-JSON body", ErrTransport, ErrInvalidResponse, method)
	}
	return gjson.ParseBytes(data), nil
}

// parseAPIError reads a nodeos error body:
//
//	{"code":500,"message":"Internal Service Error",
//	 "error":{"code":3060002,"name":"account_query_exception","what":"Account Query Exception",
//	          "details":[{"message":"unknown key ..."}]}}
func parseAPIError(status int, data []byte) *APIError {
	e := &APIError{StatusCode: status}
	if !gjson.ValidBytes(data) {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	r := gjson.ParseBytes(data)
	e.Code = r.Get("error.code").Int()
	e.Name = r.Get("error.name").String()
	e.Message = r.Get("error.what").String()
	if e.Message == "" {
		e.Message = r.Get("message").String()
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	for _, d := range r.Get("error.details.#.message").Array() {
		e.Details = append(e.Details, d.String())
	}
	return e
}

// retryLogger adapts observe.Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	l observe.Logger
}

func (r retryLogger) Error(msg string, kv ...any) { r.l.Error(context.Background(), msg, fields(kv)...) }
func (r retryLogger) Info(msg string, kv ...any)  { r.l.Info(context.Background(), msg, fields(kv)...) }
func (r retryLogger) Debug(msg string, kv ...any) { r.l.Debug(context.Background(), msg, fields(kv)...) }
func (r retryLogger) Warn(msg string, kv ...any)  { r.l.Warn(context.Background(), msg, fields(kv)...) }

func fields(kv []any) []observe.Field {
	out := make([]observe.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, observe.Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return out
}

var _ retryablehttp.LeveledLogger = retryLogger{}
