package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"taleweave/internal/sentinel"
	"taleweave/internal/webhook/models"
	id "taleweave/pkg/domain"
	domainerrors "taleweave/pkg/domain-errors"
	"taleweave/pkg/secrets"
)

// AdminStore is the registry surface the subscription admin needs.
type AdminStore interface {
	Create(ctx context.Context, sub *models.Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error)
	List(ctx context.Context) ([]*models.Subscription, error)
	Deactivate(ctx context.Context, subID id.SubscriptionID) error
	ListDeliveries(ctx context.Context, subID id.SubscriptionID, limit int) ([]*models.DeliveryLogEntry, error)
}

// Admin manages webhook subscriptions on behalf of platform operators.
type Admin struct {
	store  AdminStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAdmin creates the subscription admin service.
func NewAdmin(store AdminStore, logger *slog.Logger) *Admin {
	return &Admin{store: store, logger: logger, now: time.Now}
}

// RegisterSubscription creates a subscription with a freshly generated secret.
// The secret is returned exactly once; afterwards it exists only for signing.
func (a *Admin) RegisterSubscription(ctx context.Context, appID id.AppID, appName, endpoint string, events []models.EventType) (*models.Subscription, string, error) {
	if appID.IsNil() {
		return nil, "", domainerrors.New(domainerrors.CodeValidation, "app_id is required")
	}
	if err := validateEndpoint(endpoint); err != nil {
		return nil, "", err
	}
	if len(events) == 0 {
		return nil, "", domainerrors.New(domainerrors.CodeValidation, "at least one event type is required")
	}
	for _, e := range events {
		if !e.IsValid() {
			return nil, "", domainerrors.New(domainerrors.CodeValidation, fmt.Sprintf("unknown event type %q", e))
		}
	}

	secret, err := secrets.Generate()
	if err != nil {
		return nil, "", domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate secret")
	}

	sub := &models.Subscription{
		ID:        id.SubscriptionID(uuid.New()),
		AppID:     appID,
		AppName:   appName,
		URL:       endpoint,
		SecretKey: secret,
		Events:    events,
		Active:    true,
		CreatedAt: a.now(),
	}
	if err := a.store.Create(ctx, sub); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", domainerrors.New(domainerrors.CodeConflict, "subscription already exists")
		}
		return nil, "", domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to save subscription")
	}
	return sub, secret, nil
}

// ListSubscriptions returns every registered subscription.
func (a *Admin) ListSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	subs, err := a.store.List(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list subscriptions")
	}
	return subs, nil
}

// DeactivateSubscription turns a subscription off. Its delivery history stays.
func (a *Admin) DeactivateSubscription(ctx context.Context, subID id.SubscriptionID) error {
	if err := a.store.Deactivate(ctx, subID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domainerrors.New(domainerrors.CodeNotFound, "subscription not found")
		}
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to deactivate subscription")
	}
	return nil
}

// Deliveries returns the subscription's delivery log, newest first.
func (a *Admin) Deliveries(ctx context.Context, subID id.SubscriptionID, limit int) ([]*models.DeliveryLogEntry, error) {
	if _, err := a.store.Get(ctx, subID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "subscription not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load subscription")
	}
	entries, err := a.store.ListDeliveries(ctx, subID, limit)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list deliveries")
	}
	return entries, nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domainerrors.New(domainerrors.CodeValidation, "webhook_url must be an http(s) URL")
	}
	return nil
}
