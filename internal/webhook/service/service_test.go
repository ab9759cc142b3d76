package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweave/internal/webhook/delivery"
	"taleweave/internal/webhook/models"
	"taleweave/internal/webhook/signer"
	"taleweave/internal/webhook/store"
	id "taleweave/pkg/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fastBackoff keeps retry tests quick without changing the retry shape.
var fastBackoff = []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}

func newTestService(st *store.InMemoryStore, opts ...Option) *Service {
	base := []Option{WithBackoffSchedule(fastBackoff)}
	return New(st, st, delivery.New(delivery.WithTimeout(250*time.Millisecond)), testLogger, append(base, opts...)...)
}

func newSubscription(url string, events ...models.EventType) *models.Subscription {
	return &models.Subscription{
		ID:        id.SubscriptionID(uuid.New()),
		AppID:     id.AppID(uuid.New()),
		AppName:   "partner",
		URL:       url,
		SecretKey: "sub-secret",
		Events:    events,
		Active:    true,
		CreatedAt: time.Now(),
	}
}

func consentEvent(t models.EventType) models.Event {
	return models.Event{
		Type: t,
		Payload: models.Payload{
			StoryID:   uuid.NewString(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func TestNotifyDeliversSignedPayload(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(delivery.HeaderSignature)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := newSubscription(srv.URL, models.EventConsentGranted)
	require.NoError(t, st.Create(ctx, sub))

	svc := newTestService(st)
	svc.Notify(ctx, consentEvent(models.EventConsentGranted))

	require.NotEmpty(t, gotBody)
	assert.True(t, signer.Verify(gotBody, sub.SecretKey, gotSig))

	var envelope models.Envelope
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	assert.Equal(t, models.EventConsentGranted, envelope.Event)
	assert.NotEmpty(t, envelope.Timestamp)
	assert.NotEmpty(t, envelope.Data.StoryID)

	// Exactly one log entry, marked successful, streak untouched.
	entries, err := st.ListDeliveries(ctx, sub.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, 1, entries[0].Attempt)
	assert.Nil(t, entries[0].NextRetryAt)

	updated, err := st.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Zero(t, updated.ConsecutiveFailures)
	assert.NotNil(t, updated.LastSuccessAt)
}

func TestRetryBoundOnServerError(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sub := newSubscription(srv.URL, models.EventConsentRevoked)
	require.NoError(t, st.Create(ctx, sub))

	svc := newTestService(st)
	svc.Notify(ctx, consentEvent(models.EventConsentRevoked))

	// 1 initial + 3 retries.
	assert.Equal(t, int32(4), calls.Load())

	entries, err := st.ListDeliveries(ctx, sub.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	// Newest first: final attempt has no retry scheduled, earlier ones do.
	assert.Equal(t, 4, entries[0].Attempt)
	assert.Nil(t, entries[0].NextRetryAt)
	assert.Equal(t, 1, entries[3].Attempt)
	assert.NotNil(t, entries[3].NextRetryAt)

	updated, err := st.Get(ctx, sub.ID)
	require.NoError(t, err)
	// One streak increment per delivery, not per attempt.
	assert.Equal(t, 1, updated.ConsecutiveFailures)
	assert.NotNil(t, updated.LastFailureAt)
}

func TestClientErrorStopsRetries(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sub := newSubscription(srv.URL, models.EventConsentRevoked)
	require.NoError(t, st.Create(ctx, sub))

	svc := newTestService(st)
	svc.Notify(ctx, consentEvent(models.EventConsentRevoked))

	assert.Equal(t, int32(1), calls.Load())

	entries, err := st.ListDeliveries(ctx, sub.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	// No retry will ever be scheduled for a permanent rejection.
	assert.Nil(t, entries[0].NextRetryAt)

	updated, err := st.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ConsecutiveFailures)
}

func TestFanoutIsolation(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	release := make(chan struct{})
	hanging := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer hanging.Close()
	defer close(release)

	var healthyCalls atomic.Int32
	healthy := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			healthyCalls.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
	}
	h1 := healthy()
	defer h1.Close()
	h2 := healthy()
	defer h2.Close()

	require.NoError(t, st.Create(ctx, newSubscription(hanging.URL, models.EventConsentRevoked)))
	require.NoError(t, st.Create(ctx, newSubscription(h1.URL, models.EventConsentRevoked)))
	require.NoError(t, st.Create(ctx, newSubscription(h2.URL, models.EventConsentRevoked)))

	// Hanging subscriber is bounded by the per-attempt timeout, not by the
	// healthy subscribers' deliveries.
	svc := newTestService(st)
	start := time.Now()
	svc.Notify(ctx, consentEvent(models.EventConsentRevoked))

	assert.Equal(t, int32(2), healthyCalls.Load())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRevokePayloadCarriesRemovalInstruction(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, st.Create(ctx, newSubscription(srv.URL, models.EventConsentRevoked)))

	svc := newTestService(st)
	svc.NotifyConsentRevoked(ctx,
		id.StoryID(uuid.New()), id.AppID(uuid.New()), id.StorytellerID(uuid.New()),
		"storyteller request")

	var envelope models.Envelope
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	assert.Equal(t, models.EventConsentRevoked, envelope.Event)
	require.NotNil(t, envelope.Data.Consent)
	assert.Equal(t, "storyteller request", envelope.Data.Consent.Reason)
	assert.Equal(t, models.ActionRemoveImmediately, envelope.Data.ActionRequired)
}

func TestFailureStreakResetsOnSuccess(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	var failing atomic.Bool
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := newSubscription(srv.URL, models.EventStoryUpdated)
	require.NoError(t, st.Create(ctx, sub))

	svc := newTestService(st, WithMaxAttempts(1))
	for i := 0; i < 3; i++ {
		svc.Notify(ctx, consentEvent(models.EventStoryUpdated))
	}

	updated, err := st.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, 3, updated.ConsecutiveFailures)

	failing.Store(false)
	svc.Notify(ctx, consentEvent(models.EventStoryUpdated))

	updated, err = st.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Zero(t, updated.ConsecutiveFailures)
	assert.NotNil(t, updated.LastSuccessAt)
}

func TestAutoDisableThreshold(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sub := newSubscription(srv.URL, models.EventConsentRevoked)
	require.NoError(t, st.Create(ctx, sub))

	svc := newTestService(st, WithMaxAttempts(1), WithAutoDisableThreshold(2))
	svc.Notify(ctx, consentEvent(models.EventConsentRevoked))
	svc.Notify(ctx, consentEvent(models.EventConsentRevoked))

	updated, err := st.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	// Disabled subscriptions fall out of the registry.
	subs, err := st.ListForEvent(ctx, models.EventConsentRevoked)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

// erroringSubs simulates a registry outage.
type erroringSubs struct{}

func (erroringSubs) ListForEvent(context.Context, models.EventType) ([]*models.Subscription, error) {
	return nil, errors.New("registry unavailable")
}
func (erroringSubs) ListForApp(context.Context, id.AppID, models.EventType) ([]*models.Subscription, error) {
	return nil, errors.New("registry unavailable")
}
func (erroringSubs) RecordSuccess(context.Context, id.SubscriptionID, time.Time) error { return nil }
func (erroringSubs) RecordFailure(context.Context, id.SubscriptionID, time.Time) (int, error) {
	return 0, nil
}
func (erroringSubs) Deactivate(context.Context, id.SubscriptionID) error { return nil }

func TestRegistryLookupFailureIsFailOpen(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	svc := New(erroringSubs{}, st, delivery.New(), testLogger)

	// Must not panic or block; treated as "no subscribers".
	svc.Notify(ctx, consentEvent(models.EventConsentRevoked))
	assert.False(t, svc.NotifyApp(ctx, id.AppID(uuid.New()), consentEvent(models.EventConsentRevoked)))
}

func TestNotifyAppScopedDelivery(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	okSub := newSubscription(ok.URL, models.EventConsentGranted)
	badSub := newSubscription(bad.URL, models.EventConsentGranted)
	badSub.AppID = okSub.AppID
	otherSub := newSubscription(ok.URL, models.EventConsentGranted)
	require.NoError(t, st.Create(ctx, okSub))
	require.NoError(t, st.Create(ctx, badSub))
	require.NoError(t, st.Create(ctx, otherSub))

	svc := newTestService(st, WithMaxAttempts(1))

	assert.True(t, svc.NotifyApp(ctx, okSub.AppID, consentEvent(models.EventConsentGranted)))
	// The other app's subscription was never touched.
	entries, err := st.ListDeliveries(ctx, otherSub.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.False(t, svc.NotifyApp(ctx, id.AppID(uuid.New()), consentEvent(models.EventConsentGranted)))
}

func TestBackoffBeforeClampsToSchedule(t *testing.T) {
	svc := New(store.New(), store.New(), delivery.New(), testLogger,
		WithBackoffSchedule([]time.Duration{time.Second, 5 * time.Second, 30 * time.Second}),
		WithMaxAttempts(6),
	)

	assert.Equal(t, time.Second, svc.backoffBefore(2))
	assert.Equal(t, 5*time.Second, svc.backoffBefore(3))
	assert.Equal(t, 30*time.Second, svc.backoffBefore(4))
	// Attempts past the schedule reuse the last delay.
	assert.Equal(t, 30*time.Second, svc.backoffBefore(6))
}

func TestStoryEventPayloads(t *testing.T) {
	ctx := context.Background()
	st := store.New()

	var envelopes []models.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var env models.Envelope
		require.NoError(t, json.Unmarshal(body, &env))
		envelopes = append(envelopes, env)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := newSubscription(srv.URL,
		models.EventStoryUpdated, models.EventStoryDeleted, models.EventCulturalApproved)
	require.NoError(t, st.Create(ctx, sub))
	svc := newTestService(st)

	storyID := id.StoryID(uuid.New())
	svc.NotifyStoryUpdated(ctx, storyID, "River Crossing", []string{"title", "content"})
	svc.NotifyStoryDeleted(ctx, storyID)
	svc.NotifyCulturalReview(ctx, models.EventCulturalApproved, storyID, id.AppID{}, "approved", "ok to share")

	require.Len(t, envelopes, 3)

	updated := envelopes[0]
	assert.Equal(t, models.EventStoryUpdated, updated.Event)
	require.NotNil(t, updated.Data.Story)
	assert.Equal(t, "River Crossing", updated.Data.Story.Title)
	assert.Equal(t, []string{"title", "content"}, updated.Data.Story.UpdatedFields)
	assert.Equal(t, models.ActionRefreshContent, updated.Data.ActionRequired)

	deleted := envelopes[1]
	assert.Equal(t, models.EventStoryDeleted, deleted.Event)
	assert.Equal(t, storyID.String(), deleted.Data.StoryID)
	assert.Equal(t, models.ActionRemoveImmediately, deleted.Data.ActionRequired)

	cultural := envelopes[2]
	assert.Equal(t, models.EventCulturalApproved, cultural.Event)
	require.NotNil(t, cultural.Data.Cultural)
	assert.Equal(t, "approved", cultural.Data.Cultural.Status)
	// No target app, so the field stays empty on review events.
	assert.Empty(t, cultural.Data.AppID)
}
