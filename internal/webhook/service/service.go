// Package service drives webhook delivery: subscriber fan-out, per-subscriber
// retries with fixed backoff, health tracking, and the append-only delivery log.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"taleweave/internal/webhook/delivery"
	"taleweave/internal/webhook/metrics"
	"taleweave/internal/webhook/models"
	"taleweave/internal/webhook/signer"
	"taleweave/internal/webhook/tracer"
	id "taleweave/pkg/domain"
)

// SubscriptionStore resolves subscribers and tracks their delivery health.
// Error Contract:
// - List methods return nil slices (no error) when nothing matches
// - Mutations return sentinel.ErrNotFound when the subscription does not exist
type SubscriptionStore interface {
	ListForEvent(ctx context.Context, event models.EventType) ([]*models.Subscription, error)
	ListForApp(ctx context.Context, appID id.AppID, event models.EventType) ([]*models.Subscription, error)
	RecordSuccess(ctx context.Context, subID id.SubscriptionID, at time.Time) error
	RecordFailure(ctx context.Context, subID id.SubscriptionID, at time.Time) (int, error)
	Deactivate(ctx context.Context, subID id.SubscriptionID) error
}

// DeliveryLog persists one row per delivery attempt.
type DeliveryLog interface {
	Append(ctx context.Context, entry *models.DeliveryLogEntry) error
}

// Executor performs a single delivery attempt.
type Executor interface {
	Send(ctx context.Context, url string, payload []byte, signature string, attempt int) models.DeliveryResult
}

var _ Executor = (*delivery.Executor)(nil)

const defaultMaxAttempts = 4

// defaultBackoff holds the waits before attempts 2, 3, and 4.
var defaultBackoff = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}

// Service is the notification façade. One instance serves the whole process;
// collaborators are injected so tests can substitute fakes.
type Service struct {
	subs     SubscriptionStore
	log      DeliveryLog
	executor Executor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer

	backoff          []time.Duration
	maxAttempts      int
	disableThreshold int
	now              func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used around delivery attempts.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithBackoffSchedule overrides the waits before retry attempts.
// Attempts beyond the schedule reuse its last entry.
func WithBackoffSchedule(delays []time.Duration) Option {
	return func(s *Service) {
		if len(delays) > 0 {
			s.backoff = delays
		}
	}
}

// WithMaxAttempts sets the total attempt budget per subscription (initial + retries).
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithAutoDisableThreshold deactivates a subscription once its consecutive
// failure streak reaches n. Zero (the default) leaves subscriptions active and
// only tracks the streak.
func WithAutoDisableThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.disableThreshold = n
		}
	}
}

// WithClock injects the time source. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates the webhook notification service.
func New(subs SubscriptionStore, log DeliveryLog, executor Executor, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		subs:        subs,
		log:         log,
		executor:    executor,
		logger:      logger,
		tracer:      tracer.Noop{},
		backoff:     defaultBackoff,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify fans the event out to every active subscription registered for its
// type. Deliveries run concurrently and independently; one subscriber's
// failure or slowness never blocks another's delivery or the caller's domain
// operation, so Notify reports nothing back.
//
// Registry lookup failures are fail-open: a missed notification is preferable
// to blocking the consent change that triggered it.
func (s *Service) Notify(ctx context.Context, event models.Event) {
	subs, err := s.subs.ListForEvent(ctx, event.Type)
	if err != nil {
		s.logWarn(ctx, "subscription lookup failed, skipping notification",
			"event", event.Type, "error", err)
		return
	}
	if len(subs) == 0 {
		s.logDebug(ctx, "no webhook subscriptions for event", "event", event.Type)
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveFanoutSize(len(subs))
	}

	var g errgroup.Group
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			result := s.deliver(ctx, sub, event)
			s.logDeliveryOutcome(ctx, sub, event, result)
			return nil
		})
	}
	_ = g.Wait()
}

// NotifyApp delivers the event to one app's subscriptions only. Returns true
// when at least one subscription accepted the delivery.
func (s *Service) NotifyApp(ctx context.Context, appID id.AppID, event models.Event) bool {
	subs, err := s.subs.ListForApp(ctx, appID, event.Type)
	if err != nil {
		s.logWarn(ctx, "subscription lookup failed for app",
			"app_id", appID, "event", event.Type, "error", err)
		return false
	}
	if len(subs) == 0 {
		s.logDebug(ctx, "no webhook subscription for app",
			"app_id", appID, "event", event.Type)
		return false
	}

	results := make([]models.DeliveryResult, len(subs))
	var g errgroup.Group
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			results[i] = s.deliver(ctx, sub, event)
			s.logDeliveryOutcome(ctx, sub, event, results[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Success {
			return true
		}
	}
	return false
}

// deliver runs the retry loop for one subscription. Attempts are strictly
// sequential: attempt N+1 never starts before attempt N resolves and its
// backoff elapses. A 4xx response stops retries immediately.
func (s *Service) deliver(ctx context.Context, sub *models.Subscription, event models.Event) models.DeliveryResult {
	payload, err := event.Encode(s.now())
	if err != nil {
		// Marshal of our own structs; not reachable in practice.
		s.logWarn(ctx, "failed to encode webhook payload", "event", event.Type, "error", err)
		return models.DeliveryResult{ErrorMessage: err.Error()}
	}
	signature := signer.Sign(payload, sub.SecretKey)

	var last models.DeliveryResult
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.backoffBefore(attempt)):
			case <-ctx.Done():
				s.recordFailure(ctx, sub, event)
				return last
			}
		}

		last = s.attempt(ctx, sub, payload, signature, attempt, event)
		s.appendLog(ctx, sub, event, payload, last, attempt)

		if last.Success {
			s.recordSuccess(ctx, sub, event)
			return last
		}
		if last.PermanentFailure() {
			break
		}
	}

	s.recordFailure(ctx, sub, event)
	return last
}

// attempt wraps one executor call with tracing and metrics.
func (s *Service) attempt(ctx context.Context, sub *models.Subscription, payload []byte, signature string, attempt int, event models.Event) models.DeliveryResult {
	ctx, span := s.tracer.Start(ctx, "webhook.deliver",
		tracer.Attribute{Key: "subscription_id", Value: sub.ID.String()},
		tracer.Attribute{Key: "event_type", Value: string(event.Type)},
		tracer.Attribute{Key: "attempt", Value: strconv.Itoa(attempt)},
	)

	result := s.executor.Send(ctx, sub.URL, payload, signature, attempt)

	span.SetAttributes(
		tracer.Attribute{Key: "status_code", Value: strconv.Itoa(result.StatusCode)},
	)
	if result.ErrorMessage != "" {
		span.AddEvent("transport_error", tracer.Attribute{Key: "message", Value: result.ErrorMessage})
	}
	span.End(nil)

	if s.metrics != nil {
		s.metrics.IncDeliveryAttempts(string(event.Type))
		s.metrics.ObserveDeliveryLatency(string(event.Type), result.ResponseTime.Seconds())
	}
	return result
}

// appendLog writes the attempt to the delivery log. Log failures are
// secondary bookkeeping: logged, never allowed to fail the delivery path.
func (s *Service) appendLog(ctx context.Context, sub *models.Subscription, event models.Event, payload []byte, result models.DeliveryResult, attempt int) {
	entry := &models.DeliveryLogEntry{
		SubscriptionID: sub.ID,
		EventType:      event.Type,
		Payload:        payload,
		Attempt:        attempt,
		ResponseStatus: result.StatusCode,
		ResponseBody:   result.ResponseBody,
		ResponseTime:   result.ResponseTime,
		Success:        result.Success,
		ErrorMessage:   result.ErrorMessage,
		CreatedAt:      s.now(),
	}
	// A retry is scheduled only for retryable failures with budget left.
	if !result.Success && !result.PermanentFailure() && attempt < s.maxAttempts {
		next := s.now().Add(s.backoffBefore(attempt + 1))
		entry.NextRetryAt = &next
	}
	if err := s.log.Append(ctx, entry); err != nil {
		s.logWarn(ctx, "failed to append delivery log",
			"subscription_id", sub.ID, "event", event.Type, "error", err)
	}
}

// backoffBefore returns the wait preceding the given attempt (attempt >= 2).
func (s *Service) backoffBefore(attempt int) time.Duration {
	idx := attempt - 2
	if idx >= len(s.backoff) {
		idx = len(s.backoff) - 1
	}
	return s.backoff[idx]
}

func (s *Service) recordSuccess(ctx context.Context, sub *models.Subscription, event models.Event) {
	if err := s.subs.RecordSuccess(ctx, sub.ID, s.now()); err != nil {
		s.logWarn(ctx, "failed to record delivery success",
			"subscription_id", sub.ID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncDeliveriesSucceeded(string(event.Type))
	}
}

func (s *Service) recordFailure(ctx context.Context, sub *models.Subscription, event models.Event) {
	count, err := s.subs.RecordFailure(ctx, sub.ID, s.now())
	if err != nil {
		s.logWarn(ctx, "failed to record delivery failure",
			"subscription_id", sub.ID, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncDeliveriesFailed(string(event.Type))
	}
	if s.disableThreshold > 0 && count >= s.disableThreshold {
		if err := s.subs.Deactivate(ctx, sub.ID); err != nil {
			s.logWarn(ctx, "failed to deactivate unhealthy subscription",
				"subscription_id", sub.ID, "error", err)
			return
		}
		s.logWarn(ctx, "subscription auto-disabled after consecutive failures",
			"subscription_id", sub.ID, "app_id", sub.AppID, "failures", count)
		if s.metrics != nil {
			s.metrics.IncSubscriptionsDisabled()
		}
	}
}

func (s *Service) logDeliveryOutcome(ctx context.Context, sub *models.Subscription, event models.Event, result models.DeliveryResult) {
	name := sub.AppName
	if name == "" {
		name = sub.URL
	}
	if result.Success {
		s.logDebug(ctx, "webhook delivered",
			"subscriber", name, "event", event.Type, "status", result.StatusCode)
		return
	}
	s.logWarn(ctx, "webhook delivery failed",
		"subscriber", name, "event", event.Type,
		"status", result.StatusCode, "error", result.ErrorMessage)
}

func (s *Service) logDebug(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.DebugContext(ctx, msg, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
