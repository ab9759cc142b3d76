// Package delivery performs single webhook delivery attempts.
package delivery

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"taleweave/internal/webhook/models"
)

const (
	// DefaultTimeout bounds one delivery attempt end to end.
	DefaultTimeout = 30 * time.Second

	// maxStoredBody caps how much of the subscriber's response is kept for
	// the delivery log.
	maxStoredBody = 1000

	userAgent = "Taleweave-Webhook/1.0"

	// HeaderSignature carries the HMAC of the request body.
	HeaderSignature = "X-Taleweave-Signature"
	// HeaderAttempt carries the 1-based attempt number for this event.
	HeaderAttempt = "X-Taleweave-Delivery-Attempt"
)

// Executor issues one HTTP POST per call. It holds no per-subscription state;
// retries and health tracking are the service's concern.
type Executor struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures the Executor.
type Option func(*Executor)

// WithTimeout overrides the per-attempt timeout. Tests use short values.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithClient injects a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(e *Executor) {
		if c != nil {
			e.client = c
		}
	}
}

// New creates a delivery executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		client:  &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Send POSTs the signed payload to url and captures the outcome.
//
// It never returns an error: timeouts, refused connections, and bad responses
// are all folded into the DeliveryResult so the caller can log and decide
// whether to retry.
func (e *Executor) Send(ctx context.Context, url string, payload []byte, signature string, attempt int) models.DeliveryResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return models.DeliveryResult{
			ResponseTime: time.Since(start),
			ErrorMessage: err.Error(),
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderAttempt, strconv.Itoa(attempt))
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return models.DeliveryResult{
			ResponseTime: time.Since(start),
			ErrorMessage: err.Error(),
		}
	}
	defer resp.Body.Close() //nolint:errcheck // response body, best effort

	// Read a bounded amount; the log only keeps an excerpt anyway.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxStoredBody+1))
	if len(body) > maxStoredBody {
		body = body[:maxStoredBody]
	}

	return models.DeliveryResult{
		Success:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode:   resp.StatusCode,
		ResponseBody: string(body),
		ResponseTime: time.Since(start),
	}
}
