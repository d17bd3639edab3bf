// Package client calls the remote email generation service.
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

	"github.com/jonathan/coldmail/internal/logger"
	"github.com/jonathan/coldmail/internal/metrics"
	"github.com/jonathan/coldmail/internal/schemas"
	"github.com/jonathan/coldmail/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/jonathan/coldmail/internal/client")

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for requests.
const DefaultUserAgent = "coldmail/1.0"

// GenerateEmailsPath is the generation endpoint relative to the base URL.
const GenerateEmailsPath = "/generate-emails"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 10 << 20

// Options configures the client.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the generation service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts *Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if opts == nil {
		opts = &Options{}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		baseURL:    u,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger.OrNop(opts.Logger),
	}, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// Generate issues exactly one POST /generate-emails call for req.
func (c *Client) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	ctx, span := tracer.Start(ctx, "GenerateEmails")
	defer span.End()
	if req != nil {
		span.SetAttributes(attribute.String("coldmail.mode", string(req.Mode())))
	}

	out, err := c.generate(ctx, req)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			span.SetAttributes(attribute.Int("http.status_code", reqErr.StatusCode))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, UserMessage(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("coldmail.total_jobs", out.TotalJobs))
	return out, nil
}

func (c *Client) generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	body, err := types.MarshalRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if err := schemas.ValidateGenerationRequest(body); err != nil {
		return nil, fmt.Errorf("invalid generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(GenerateEmailsPath), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	log := c.logger.With(zap.String("mode", string(req.Mode())), zap.String("endpoint", GenerateEmailsPath))
	log.Debug("sending generation request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(start, metrics.OutcomeTransportError)
		log.Warn("generation request failed", zap.Error(err))
		return nil, &TransportError{Op: "send generation request", Cause: transportCause(ctx, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(start, metrics.OutcomeTransportError)
		return nil, &TransportError{Op: "read generation response", Cause: transportCause(ctx, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(start, metrics.OutcomeRequestError)
		reqErr := &RequestError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		log.Warn("generation service returned error",
			zap.Int("status", resp.StatusCode), zap.String("message", reqErr.Message))
		return nil, reqErr
	}

	var out types.GenerationResponse
	if err := json.Unmarshal(data, &out); err != nil {
		c.observe(start, metrics.OutcomeTransportError)
		return nil, &TransportError{Op: "decode generation response", Cause: err}
	}
	if err := out.Validate(); err != nil {
		c.observe(start, metrics.OutcomeTransportError)
		return nil, &TransportError{Op: "validate generation response", Cause: err}
	}

	c.observe(start, metrics.OutcomeSuccess)
	log.Info("generation request completed",
		zap.Int("total_jobs", out.TotalJobs), zap.Duration("elapsed", time.Since(start)))
	return &out, nil
}

// Health calls GET /health on the service.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var out types.HealthResponse
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info calls GET / on the service.
func (c *Client) Info(ctx context.Context) (*types.ServiceInfo, error) {
	var out types.ServiceInfo
	if err := c.getJSON(ctx, "/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RequestDuration.WithLabelValues(path, metrics.OutcomeTransportError).Observe(time.Since(start).Seconds())
		return &TransportError{Op: "GET " + path, Cause: transportCause(ctx, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: "GET " + path, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RequestDuration.WithLabelValues(path, metrics.OutcomeRequestError).Observe(time.Since(start).Seconds())
		msg := errorMessage(data)
		if msg == FallbackMessage {
			msg = http.StatusText(resp.StatusCode)
		}
		return &RequestError{StatusCode: resp.StatusCode, Message: msg}
	}
	metrics.RequestDuration.WithLabelValues(path, metrics.OutcomeSuccess).Observe(time.Since(start).Seconds())

	if err := json.Unmarshal(data, dst); err != nil {
		return &TransportError{Op: "decode " + path, Cause: err}
	}
	return nil
}

func (c *Client) observe(start time.Time, outcome string) {
	metrics.RequestDuration.WithLabelValues(GenerateEmailsPath, outcome).Observe(time.Since(start).Seconds())
}

// errorMessage extracts the detail string from an error body, else the fallback.
func errorMessage(data []byte) string {
	var body types.ErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return FallbackMessage
	}
	if msg := body.DetailMessage(); msg != "" {
		return msg
	}
	return FallbackMessage
}

// transportCause replaces a deadline error with a readable timeout message.
func transportCause(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("request timed out: %w", urlErr.Err)
	}
	return err
}
