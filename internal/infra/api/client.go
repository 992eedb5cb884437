// Package api is the JSON REST client for the clinic portal backend. Failures
// come back as *domain.RequestError (no response) or *domain.ResponseError
// (non-2xx response) so that the classifier can inspect them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/recovery/metrics"
)

// maxBodyBytes bounds how much of an error body is kept.
const maxBodyBytes = 1 << 20

// Config holds backend connection settings.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Token      string        `yaml:"token"`
	HealthPath string        `yaml:"health_path"`
}

// Client calls the clinic backend.
type Client struct {
	baseURL    string
	token      string
	healthPath string
	httpClient *http.Client
}

// NewClient creates a client. A nil httpClient gets a pooled default.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/api/health/"
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		healthPath: cfg.HealthPath,
		httpClient: httpClient,
	}
}

// SetToken replaces the bearer token sent with each request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Do sends a JSON request and decodes a JSON response into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	start := time.Now()
	url := c.baseURL + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequestDuration.WithLabelValues(method, "error").Observe(time.Since(start).Seconds())
		return &domain.RequestError{
			Method: method,
			URL:    url,
			Code:   domain.TransportCode(err),
			Err:    err,
		}
	}
	defer resp.Body.Close()

	metrics.APIRequestDuration.
		WithLabelValues(method, strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.RequestError{
			Method: method,
			URL:    url,
			Code:   domain.TransportCode(err),
			Err:    fmt.Errorf("read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.ResponseError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       data,
		}
	}

	if out == nil || len(data) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Ping calls the backend health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, c.healthPath, nil, nil)
}

// Close cleans up resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
