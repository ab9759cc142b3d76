package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweave/internal/embedtoken"
	"taleweave/internal/syndication/models"
	"taleweave/internal/webhook/delivery"
	webhookmodels "taleweave/internal/webhook/models"
	webhookservice "taleweave/internal/webhook/service"
	webhookstore "taleweave/internal/webhook/store"
	id "taleweave/pkg/domain"
)

// The consent manager speaks to platforms through the webhook pipeline; the
// webhook service must satisfy the Notifier contract.
var _ Notifier = (*webhookservice.Service)(nil)

type receiver struct {
	mu        sync.Mutex
	envelopes []webhookmodels.Envelope
}

func (r *receiver) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var envelope webhookmodels.Envelope
		if json.Unmarshal(body, &envelope) == nil {
			r.mu.Lock()
			r.envelopes = append(r.envelopes, envelope)
			r.mu.Unlock()
		}
		w.WriteHeader(status)
	}
}

func (r *receiver) received() []webhookmodels.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]webhookmodels.Envelope(nil), r.envelopes...)
}

func TestConsentLifecycleNotifiesSubscribedPlatform(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	var rcv receiver
	srv := httptest.NewServer(rcv.handler(http.StatusOK))
	defer srv.Close()

	hooks := webhookstore.New()
	require.NoError(t, hooks.Create(ctx, &webhookmodels.Subscription{
		ID:        id.SubscriptionID(uuid.New()),
		AppID:     f.appID,
		AppName:   "heritage-archive",
		URL:       srv.URL,
		SecretKey: "shh",
		Events: []webhookmodels.EventType{
			webhookmodels.EventConsentGranted,
			webhookmodels.EventConsentRevoked,
		},
		Active:    true,
		CreatedAt: time.Now(),
	}))

	notifier := webhookservice.New(hooks, hooks,
		delivery.New(delivery.WithTimeout(250*time.Millisecond)), testLogger,
		webhookservice.WithBackoffSchedule([]time.Duration{5 * time.Millisecond}))

	issuer := embedtoken.New([]byte("e2e-key"))
	svc := New(f.consents, f.directory, notifier, testLogger, WithTokenIssuer(issuer))

	_, err := svc.Grant(ctx, f.grantRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, f.storyID, f.appID, f.tellerID, "ceremony season"))

	envelopes := rcv.received()
	require.Len(t, envelopes, 2)

	granted := envelopes[0]
	assert.Equal(t, webhookmodels.EventConsentGranted, granted.Event)
	assert.Equal(t, f.storyID.String(), granted.Data.StoryID)
	require.NotNil(t, granted.Data.Consent)
	assert.Equal(t, "full", granted.Data.Consent.NewLevel)
	claims, err := issuer.Verify(granted.Data.Consent.EmbedToken)
	require.NoError(t, err)
	assert.Equal(t, "full", claims.ShareLevel)

	revoked := envelopes[1]
	assert.Equal(t, webhookmodels.EventConsentRevoked, revoked.Event)
	require.NotNil(t, revoked.Data.Consent)
	assert.Equal(t, "ceremony season", revoked.Data.Consent.Reason)
	assert.NotEmpty(t, revoked.Data.ActionRequired)
}

func TestChangeLogCompleteWhenPlatformIsDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	hooks := webhookstore.New()
	subID := id.SubscriptionID(uuid.New())
	require.NoError(t, hooks.Create(ctx, &webhookmodels.Subscription{
		ID:        subID,
		AppID:     f.appID,
		URL:       srv.URL,
		SecretKey: "shh",
		Events: []webhookmodels.EventType{
			webhookmodels.EventConsentGranted,
			webhookmodels.EventConsentRevoked,
		},
		Active:    true,
		CreatedAt: time.Now(),
	}))

	notifier := webhookservice.New(hooks, hooks,
		delivery.New(delivery.WithTimeout(250*time.Millisecond)), testLogger,
		webhookservice.WithBackoffSchedule([]time.Duration{time.Millisecond}))

	svc := New(f.consents, f.directory, notifier, testLogger)

	rec, err := svc.Grant(ctx, f.grantRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, f.storyID, f.appID, f.tellerID, "withdrawn"))

	// The consent state machine and its audit trail are complete even though
	// every delivery failed.
	got, err := f.consents.Get(ctx, f.storyID, f.appID)
	require.NoError(t, err)
	assert.False(t, got.Granted)

	entries, err := f.consents.ListChanges(ctx, rec.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ChangeRevoked, entries[0].ChangeType)
	assert.Equal(t, models.ChangeGranted, entries[1].ChangeType)

	// The failures themselves are fully accounted for in the delivery log.
	attempts, err := hooks.ListDeliveries(ctx, subID, 0)
	require.NoError(t, err)
	assert.Len(t, attempts, 8)
}
