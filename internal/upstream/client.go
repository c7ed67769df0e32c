package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/smukkama/traffic-monitor/internal/congestion"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

// AuthError is a definitive credential rejection. It is never retried.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream rejected credentials (HTTP %d)", e.StatusCode)
}

// TransientError is a timeout, connection failure, or non-200 response
// that survived every retry attempt.
type TransientError struct {
	Attempts int
	Last     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("upstream failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *TransientError) Unwrap() error { return e.Last }

// IsAuth reports whether err is a credential failure.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

type flowResponse struct {
	FlowSegmentData struct {
		CurrentSpeed  float64 `json:"currentSpeed"`
		FreeFlowSpeed float64 `json:"freeFlowSpeed"`
	} `json:"flowSegmentData"`
}

type incidentResponse struct {
	Incidents []json.RawMessage `json:"incidents"`
}

// Client queries the traffic-flow and incident APIs with bounded retries
// and linearly increasing backoff.
type Client struct {
	cfg        config.UpstreamConfig
	httpClient *http.Client

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sleep:      time.Sleep,
	}
}

// FetchFlow returns the current and free-flow speed for a coordinate.
// Missing speed fields come back as an invalid pair with a nil error.
func (c *Client) FetchFlow(ctx context.Context, lat, lon float64) (congestion.Speeds, error) {
	q := url.Values{}
	q.Set("point", fmt.Sprintf("%f,%f", lat, lon))
	q.Set("unit", "KMPH")
	q.Set("key", c.cfg.APIKey)
	reqURL := c.cfg.FlowURL + "?" + q.Encode()

	body, err := c.getWithRetry(ctx, reqURL)
	if err != nil {
		return congestion.Speeds{}, err
	}

	var fr flowResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return congestion.Speeds{}, fmt.Errorf("failed to parse flow response: %w", err)
	}

	return congestion.Speeds{
		Current:  fr.FlowSegmentData.CurrentSpeed,
		FreeFlow: fr.FlowSegmentData.FreeFlowSpeed,
	}, nil
}

// FetchIncidentCount returns the number of reported incidents within
// radiusKm of a coordinate.
func (c *Client) FetchIncidentCount(ctx context.Context, lat, lon, radiusKm float64) (int, error) {
	bbox := BoundingBox(lat, lon, radiusKm)
	reqURL := fmt.Sprintf("%s/%s/10/-1/json?key=%s&language=en-GB",
		c.cfg.IncidentURL, bbox, url.QueryEscape(c.cfg.APIKey))

	body, err := c.getWithRetry(ctx, reqURL)
	if err != nil {
		return 0, err
	}

	var ir incidentResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return 0, fmt.Errorf("failed to parse incident response: %w", err)
	}
	return len(ir.Incidents), nil
}

// BoundingBox converts a radius in km around a coordinate into the
// "minLon,minLat,maxLon,maxLat" query string. One degree of latitude is
// ~111 km; a degree of longitude narrows by cos(latitude), clamped so the
// box stays bounded near the poles.
func BoundingBox(lat, lon, radiusKm float64) string {
	latDelta := radiusKm / 111
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDelta := radiusKm / (111 * cosLat)

	return fmt.Sprintf("%f,%f,%f,%f", lon-lonDelta, lat-latDelta, lon+lonDelta, lat+latDelta)
}

func (c *Client) getWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	maxRetries := c.cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff: 1s after the first failure, 2s after the
			// second. No sleep follows the final attempt.
			c.sleep(time.Duration(attempt) * time.Second)
		}

		body, err := c.get(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if IsAuth(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, &TransientError{Attempts: maxRetries, Last: lastErr}
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return nil, &AuthError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from upstream", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
