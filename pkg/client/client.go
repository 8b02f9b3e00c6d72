// Package client provides the HTTP JSON client used to talk to the Cin7 v1
// REST API, including basic-auth header construction, transport error
// classification and request metrics.
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cin7_requests_total",
		Help: "Total API requests by resource and status",
	}, []string{"resource", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cin7_request_duration_seconds",
		Help:    "API request duration in seconds by resource",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"resource"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cin7_errors_total",
		Help: "Total API transport errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the Cin7 v1 API root.
const DefaultBaseURL = "https://api.cin7.com/api/v1"

// maxErrorBody bounds how much of an error response is kept in APIError.
const maxErrorBody = 512

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// Timeout bounds a single request including body read.
	Timeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   60 * time.Second,
		UserAgent: "cin7-report-sync/0.1.0",
	}
}

// Client performs authenticated GET requests returning JSON.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logging.NewLogger("cin7-client"),
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BasicAuth builds the Authorization header value for a username:secret pair.
func BasicAuth(username, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+secret))
}

// GetJSON performs a GET request and returns the raw JSON body.
// Any network failure, non-2xx status or non-JSON body is returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, rawURL, authHeader string) (json.RawMessage, error) {
	resource := resourceOf(rawURL)

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().Str("resource", resource).Str("url", redact(req.URL)).Msg("Executing API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(resource, "network_error").Inc()
		return nil, c.fail(&APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(resource, "network_error").Inc()
		return nil, c.fail(&APIError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err})
	}

	requestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(&APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ClassifyStatus(resp.StatusCode),
			Message:    resp.Status + ": " + truncate(string(body), maxErrorBody),
		})
	}

	if !json.Valid(body) {
		return nil, c.fail(&APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "response is not valid JSON",
		})
	}

	return json.RawMessage(body), nil
}

func (c *Client) fail(err *APIError) error {
	errorsTotal.WithLabelValues(string(err.ErrorClass)).Inc()
	c.logger.Warn().
		Int("status", err.StatusCode).
		Str("error_class", string(err.ErrorClass)).
		Err(err).
		Msg("API request failed")
	return err
}

// resourceOf extracts the last path segment (e.g. "SalesOrders") for metric labels.
func resourceOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return path.Base(u.Path)
}

// redact drops the query so logged URLs stay short.
func redact(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	clean.User = nil
	return clean.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
