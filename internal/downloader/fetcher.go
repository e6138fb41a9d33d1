package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/spimexhq/oilpulse/config"
	"github.com/spimexhq/oilpulse/internal/logger"
)

// ErrUnavailable marks a resource that could not be retrieved within the retry
// budget. Callers treat it as "no data for this item", not as a pipeline fault.
var ErrUnavailable = errors.New("resource unavailable")

// browserHeaders mimics a desktop browser; the exchange serves bot-looking
// clients an empty page.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// Client retrieves raw bytes over HTTP with a bounded retry budget.
//
// Every transport error and non-200 status counts against the budget; the delay
// between attempts grows linearly (base delay × attempt number). Each attempt
// carries its own timeout via the underlying http.Client.
type Client struct {
	http      *http.Client
	retries   int
	baseDelay time.Duration
}

// NewClient builds a Client from the pipeline configuration.
func NewClient(cfg config.SpimexConfig) *Client {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		retries:   retries,
		baseDelay: cfg.RetryDelay,
	}
}

// Fetch issues a GET for url and returns the response body.
//
// After exhausting all attempts it returns an error wrapping ErrUnavailable;
// it never distinguishes "timed out" from "refused" for the caller.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	attempt := 0
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return c.baseDelay * time.Duration(attempt), false
	})

	err := retry.Do(ctx, retry.WithMaxRetries(uint64(c.retries-1), linear), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			// A malformed URL will not get better with retries.
			return err
		}
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			logger.L().Warn().Str("url", url).Err(err).Msg("fetch attempt failed")
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			logger.L().Warn().Str("url", url).Int("status", resp.StatusCode).Msg("unexpected status")
			return retry.RetryableError(fmt.Errorf("http status %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.L().Error().Str("url", url).Err(err).Msg("all fetch attempts failed")
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, url)
	}

	return body, nil
}
