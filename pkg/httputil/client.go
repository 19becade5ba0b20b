package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wonny/sectorcast/pkg/config"
	"github.com/wonny/sectorcast/pkg/logger"
)

// Client is an HTTP client wrapper with retry logic and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// StatusError 2xx 가 아닌 응답
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		retryConfig: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Enabled:      true,
		},
	}
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// Get performs a GET request
// 5xx/429 와 네트워크 오류는 재시도, 마지막 응답은 상태와 관계없이 반환
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	start := time.Now()
	c.logger.WithField("url", url).Debug("HTTP request started")

	var resp *http.Response
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create GET request: %w", err))
		}
		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		if IsRetryableError(r.StatusCode) && c.retryConfig.Enabled && attempt <= c.retryConfig.MaxRetries {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return &StatusError{URL: url, StatusCode: r.StatusCode}
		}
		resp = r
		return nil
	}

	err := backoff.RetryNotify(op, c.backOff(ctx), func(err error, wait time.Duration) {
		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   wait.String(),
			"url":     url,
			"error":   err.Error(),
		}).Warn("Retrying HTTP request")
	})
	duration := time.Since(start)

	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"url":      url,
			"attempts": attempt,
			"duration": duration.String(),
			"error":    err.Error(),
		}).Error("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"url":         url,
		"status_code": resp.StatusCode,
		"attempts":    attempt,
		"duration":    duration.String(),
	}).Debug("HTTP request completed")
	return resp, nil
}

// Open GET 후 2xx 응답 본문 반환 (호출자가 Close)
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	if !c.retryConfig.Enabled {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryConfig.InitialDelay
	b.MaxInterval = c.retryConfig.MaxDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retryConfig.MaxRetries)), ctx)
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
