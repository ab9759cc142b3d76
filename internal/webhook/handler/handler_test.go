package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweave/internal/webhook/service"
	"taleweave/internal/webhook/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRouter() chi.Router {
	r := chi.NewRouter()
	New(service.NewAdmin(store.New(), testLogger), testLogger).Register(r)
	return r
}

func do(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerBody() map[string]any {
	return map[string]any{
		"app_id":      uuid.NewString(),
		"app_name":    "heritage-archive",
		"webhook_url": "https://partner.example/hooks",
		"events":      []string{"consent.granted", "consent.revoked"},
	}
}

func TestRegisterReturnsSecretOnce(t *testing.T) {
	router := newRouter()

	rec := do(t, router, http.MethodPost, "/webhooks/subscriptions", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created SubscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Secret)
	assert.True(t, created.Active)
	assert.ElementsMatch(t, []string{"consent.granted", "consent.revoked"}, created.Events)

	// The secret never shows up again.
	list := do(t, router, http.MethodGet, "/webhooks/subscriptions", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var subs []SubscriptionResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Empty(t, subs[0].Secret)
}

func TestRegisterValidation(t *testing.T) {
	router := newRouter()

	body := registerBody()
	body["events"] = []string{"consent.exploded"}
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/webhooks/subscriptions", body).Code)

	body = registerBody()
	body["webhook_url"] = "ftp://partner.example"
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/webhooks/subscriptions", body).Code)

	body = registerBody()
	delete(body, "app_id")
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/webhooks/subscriptions", body).Code)
}

func TestDeactivate(t *testing.T) {
	router := newRouter()

	rec := do(t, router, http.MethodPost, "/webhooks/subscriptions", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created SubscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	del := do(t, router, http.MethodDelete, "/webhooks/subscriptions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, del.Code)

	list := do(t, router, http.MethodGet, "/webhooks/subscriptions", nil)
	var subs []SubscriptionResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.False(t, subs[0].Active)

	assert.Equal(t, http.StatusNotFound,
		do(t, router, http.MethodDelete, "/webhooks/subscriptions/"+uuid.NewString(), nil).Code)
}

func TestDeliveriesForUnknownSubscription(t *testing.T) {
	router := newRouter()
	rec := do(t, router, http.MethodGet,
		fmt.Sprintf("/webhooks/subscriptions/%s/deliveries", uuid.NewString()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeliveriesEmptyForNewSubscription(t *testing.T) {
	router := newRouter()

	rec := do(t, router, http.MethodPost, "/webhooks/subscriptions", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created SubscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	del := do(t, router, http.MethodGet,
		fmt.Sprintf("/webhooks/subscriptions/%s/deliveries?limit=10", created.ID), nil)
	require.Equal(t, http.StatusOK, del.Code)
	var entries []DeliveryResponse
	require.NoError(t, json.Unmarshal(del.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}
