// Package geo provides reverse geocoding for forecast locations. Lookups go
// through a cache (PostgreSQL-backed or in-memory) before reaching the
// Nominatim API, and all outbound calls are routed through a resilient
// client enforcing circuit breaking, retries with exponential backoff, and
// an outbound rate limit honoring Nominatim's usage policy.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"rainparade/internal/types"
)

// maxResponseBodySize caps how much of a geocoder response is read (1 MB).
const maxResponseBodySize = 1 << 20

// RetryPolicy configures the retry behavior for the geocoding client.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns sensible defaults for Nominatim calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    500 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// Client is a reverse-geocoding client for the Nominatim API. It enforces:
//   - an outbound token bucket (Nominatim's policy is 1 request/second),
//   - circuit breaking so a dead upstream fails fast,
//   - retries with exponential backoff on 429/5xx (respecting Retry-After),
//   - a mandatory User-Agent, required by Nominatim's terms of use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	limiter    *rate.Limiter
	retry      RetryPolicy
	userAgent  string
	sleepFn    func(time.Duration) // for testability; defaults to time.Sleep
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithSleepFunc overrides the sleep function used between retries.
// This is intended for testing to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.sleepFn = fn
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// NewClient creates a Nominatim client. upstreamRPS throttles outbound
// requests; userAgent identifies this deployment to the upstream operator.
func NewClient(httpClient *http.Client, baseURL, userAgent string, upstreamRPS float64, opts ...ClientOption) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "nominatim",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		breaker:    cb,
		limiter:    rate.NewLimiter(rate.Limit(upstreamRPS), 1),
		retry:      DefaultRetryPolicy(),
		userAgent:  userAgent,
		sleepFn:    time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// nominatimResponse is the subset of the Nominatim reverse endpoint payload
// the service consumes.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		State       string `json:"state"`
		Region      string `json:"region"`
		County      string `json:"county"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// Reverse resolves the given point to an administrative address.
// Zoom level 10 requests city-level granularity.
func (c *Client) Reverse(ctx context.Context, pt types.GeoPoint) (*types.Address, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamGeocoding,
			"request cancelled while waiting for upstream rate limit",
			err,
		)
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(pt.Latitude, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(pt.Longitude, 'f', 6, 64))
	q.Set("zoom", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build geocoding request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if traceID := types.GetRequestID(ctx); traceID != "" {
		req.Header.Set("X-Request-Id", traceID)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamGeocoding,
			fmt.Sprintf("geocoding upstream returned status %d", resp.StatusCode),
			nil,
		)
	}

	var payload nominatimResponse
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize))
	if err := dec.Decode(&payload); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamGeocoding,
			"failed to decode geocoding response",
			err,
		)
	}

	return &types.Address{
		State:       payload.Address.State,
		Region:      payload.Address.Region,
		District:    payload.Address.County,
		DisplayName: payload.DisplayName,
		CountryCode: payload.Address.CountryCode,
	}, nil
}

// do executes the request through the circuit breaker with retries on
// 429/5xx. Requests are GET-only, so no body replay is needed between
// attempts. The caller is responsible for closing the response body on
// success.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	maxAttempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			// 5xx and 429 are failures for the circuit breaker.
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})

		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < maxAttempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		// An open breaker will not recover within this request's lifetime.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		if attempt < maxAttempts-1 {
			c.sleepFn(c.computeBackoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}

	return nil, c.mapError(lastResp, lastErr)
}

// computeBackoff determines the wait duration before the next retry attempt.
// It respects the Retry-After header if present, otherwise uses exponential
// backoff with jitter clamped to [MinWait, MaxWait].
func (c *Client) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				wait := time.Duration(seconds) * time.Second
				if wait > c.retry.MaxWait {
					wait = c.retry.MaxWait
				}
				return wait
			}
			if t, err := http.ParseTime(retryAfter); err == nil {
				wait := time.Until(t)
				if wait <= 0 {
					return c.retry.MinWait
				}
				if wait > c.retry.MaxWait {
					wait = c.retry.MaxWait
				}
				return wait
			}
		}
	}

	base := float64(c.retry.MinWait) * math.Pow(2, float64(attempt))
	maxWait := float64(c.retry.MaxWait)
	if base > maxWait {
		base = maxWait
	}

	minWait := float64(c.retry.MinWait)
	if base <= minWait {
		return c.retry.MinWait
	}
	jittered := minWait + rand.Float64()*(base-minWait)
	return time.Duration(jittered)
}

// mapError translates HTTP-level failures into domain-level AppErrors.
func (c *Client) mapError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamGeocoding,
			"geocoding circuit breaker is open; upstream unavailable",
			err,
		)
	}

	if resp != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamGeocoding,
			fmt.Sprintf("geocoding upstream returned %d after retries", resp.StatusCode),
			err,
		)
	}

	return types.NewAppError(
		types.ErrCodeUpstreamGeocoding,
		"geocoding request failed",
		err,
	)
}
