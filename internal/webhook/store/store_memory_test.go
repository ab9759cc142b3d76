package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweave/internal/sentinel"
	"taleweave/internal/webhook/models"
	id "taleweave/pkg/domain"
)

func testSubscription(events ...models.EventType) *models.Subscription {
	return &models.Subscription{
		ID:        id.SubscriptionID(uuid.New()),
		AppID:     id.AppID(uuid.New()),
		AppName:   "heritage-archive",
		URL:       "https://partner.example/hooks",
		SecretKey: "k",
		Events:    events,
		Active:    true,
		CreatedAt: time.Now(),
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := New()
	sub := testSubscription(models.EventConsentRevoked)

	require.NoError(t, s.Create(ctx, sub))
	assert.ErrorIs(t, s.Create(ctx, sub), sentinel.ErrConflict)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	sub := testSubscription(models.EventConsentRevoked)
	require.NoError(t, s.Create(ctx, sub))

	got, err := s.Get(ctx, sub.ID)
	require.NoError(t, err)
	got.AppName = "mutated"

	again, err := s.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "heritage-archive", again.AppName)
}

func TestGetUnknownID(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), id.SubscriptionID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestListForEventFiltersInactiveAndUnsubscribed(t *testing.T) {
	ctx := context.Background()
	s := New()

	wanted := testSubscription(models.EventConsentRevoked, models.EventStoryDeleted)
	otherEvent := testSubscription(models.EventConsentGranted)
	inactive := testSubscription(models.EventConsentRevoked)
	inactive.Active = false

	for _, sub := range []*models.Subscription{wanted, otherEvent, inactive} {
		require.NoError(t, s.Create(ctx, sub))
	}

	subs, err := s.ListForEvent(ctx, models.EventConsentRevoked)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, wanted.ID, subs[0].ID)
}

func TestListForAppScopesByApp(t *testing.T) {
	ctx := context.Background()
	s := New()

	mine := testSubscription(models.EventConsentGranted)
	other := testSubscription(models.EventConsentGranted)
	require.NoError(t, s.Create(ctx, mine))
	require.NoError(t, s.Create(ctx, other))

	subs, err := s.ListForApp(ctx, mine.AppID, models.EventConsentGranted)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, mine.ID, subs[0].ID)
}

func TestRecordSuccessResetsStreak(t *testing.T) {
	ctx := context.Background()
	s := New()
	sub := testSubscription(models.EventConsentRevoked)
	sub.ConsecutiveFailures = 5
	require.NoError(t, s.Create(ctx, sub))

	at := time.Now()
	require.NoError(t, s.RecordSuccess(ctx, sub.ID, at))

	got, err := s.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ConsecutiveFailures)
	require.NotNil(t, got.LastSuccessAt)
	assert.True(t, got.LastSuccessAt.Equal(at))
	require.NotNil(t, got.LastTriggeredAt)
}

func TestRecordFailureCountsConcurrently(t *testing.T) {
	ctx := context.Background()
	s := New()
	sub := testSubscription(models.EventConsentRevoked)
	require.NoError(t, s.Create(ctx, sub))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordFailure(ctx, sub.ID, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.ConsecutiveFailures)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	s := New()
	sub := testSubscription(models.EventConsentRevoked)
	require.NoError(t, s.Create(ctx, sub))

	require.NoError(t, s.Deactivate(ctx, sub.ID))

	got, err := s.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, s.Deactivate(ctx, id.SubscriptionID(uuid.New())), sentinel.ErrNotFound)
}

func TestListDeliveriesNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	subID := id.SubscriptionID(uuid.New())

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Append(ctx, &models.DeliveryLogEntry{
			SubscriptionID: subID,
			EventType:      models.EventConsentRevoked,
			Attempt:        i,
			CreatedAt:      time.Now(),
		}))
	}
	// An unrelated subscription's entry must not leak in.
	require.NoError(t, s.Append(ctx, &models.DeliveryLogEntry{
		SubscriptionID: id.SubscriptionID(uuid.New()),
		EventType:      models.EventConsentRevoked,
		Attempt:        1,
		CreatedAt:      time.Now(),
	}))

	entries, err := s.ListDeliveries(ctx, subID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Attempt)
	assert.Equal(t, 2, entries[1].Attempt)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)
}
