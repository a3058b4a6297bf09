package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client calls a hosted oracle over HTTP: the request is POSTed as JSON and
// the response body must decode into Response. Network errors, timeouts,
// non-2xx statuses, and malformed bodies all degrade to HOLD.
type Client struct {
	url     string
	apiKey  string
	http    *http.Client
	timeout time.Duration
	logger  *logrus.Logger
}

func NewClient(url, apiKey string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		url:     url,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

func (c *Client) Advise(ctx context.Context, req Request) Response {
	body, err := json.Marshal(req)
	if err != nil {
		return c.degrade(req.Instrument, fmt.Errorf("encode request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return c.degrade(req.Instrument, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return c.degrade(req.Instrument, fmt.Errorf("oracle call: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.degrade(req.Instrument, fmt.Errorf("oracle returned status %d", resp.StatusCode))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return c.degrade(req.Instrument, fmt.Errorf("decode response: %w", err))
	}

	switch out.Signal {
	case Buy, Sell, Hold:
	default:
		return c.degrade(req.Instrument, fmt.Errorf("unknown signal %q", out.Signal))
	}
	if out.Confidence < 0 || out.Confidence > 100 {
		return c.degrade(req.Instrument, fmt.Errorf("confidence %v out of range", out.Confidence))
	}

	return out
}

func (c *Client) degrade(instrument string, err error) Response {
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"instrument": instrument,
		}).WithError(err).Error("Advisory request failed, degrading to HOLD")
	}
	return Degraded(fmt.Sprintf("advisory unavailable: %v", err))
}
