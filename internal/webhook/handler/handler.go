package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"taleweave/internal/platform/httputil"
	"taleweave/internal/platform/middleware"
	"taleweave/internal/webhook/models"
	id "taleweave/pkg/domain"
	domainerrors "taleweave/pkg/domain-errors"
)

// Service defines the subscription admin operations the handler exposes.
type Service interface {
	RegisterSubscription(ctx context.Context, appID id.AppID, appName, endpoint string, events []models.EventType) (*models.Subscription, string, error)
	ListSubscriptions(ctx context.Context) ([]*models.Subscription, error)
	DeactivateSubscription(ctx context.Context, subID id.SubscriptionID) error
	Deliveries(ctx context.Context, subID id.SubscriptionID, limit int) ([]*models.DeliveryLogEntry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/subscriptions", h.HandleRegister)
	r.Get("/webhooks/subscriptions", h.HandleList)
	r.Delete("/webhooks/subscriptions/{id}", h.HandleDeactivate)
	r.Get("/webhooks/subscriptions/{id}/deliveries", h.HandleDeliveries)
}

// RegisterSubscriptionRequest is the wire shape for creating a subscription.
type RegisterSubscriptionRequest struct {
	AppID   string   `json:"app_id"`
	AppName string   `json:"app_name"`
	URL     string   `json:"webhook_url"`
	Events  []string `json:"events"`
}

func (r *RegisterSubscriptionRequest) Validate() error {
	if r.AppID == "" {
		return domainerrors.New(domainerrors.CodeValidation, "app_id is required")
	}
	if r.URL == "" {
		return domainerrors.New(domainerrors.CodeValidation, "webhook_url is required")
	}
	return nil
}

// HandleRegister creates a subscription. The response carries the signing
// secret; this is the only time it is ever returned.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndValidate[RegisterSubscriptionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	appID, err := id.ParseAppID(req.AppID)
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid app id"))
		return
	}
	events := make([]models.EventType, 0, len(req.Events))
	for _, e := range req.Events {
		events = append(events, models.EventType(e))
	}

	sub, secret, err := h.service.RegisterSubscription(ctx, appID, req.AppName, req.URL, events)
	if err != nil {
		h.logger.ErrorContext(ctx, "register subscription failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toSubscriptionResponse(sub, secret))
}

// HandleList returns every subscription, secrets omitted.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	subs, err := h.service.ListSubscriptions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list subscriptions failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	out := make([]*SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionResponse(sub, ""))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleDeactivate turns a subscription off.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid subscription id"))
		return
	}

	if err := h.service.DeactivateSubscription(ctx, subID); err != nil {
		h.logger.ErrorContext(ctx, "deactivate subscription failed", "error", err, "request_id", requestID, "subscription_id", subID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"active": false})
}

// HandleDeliveries returns the subscription's delivery log, newest first.
func (h *Handler) HandleDeliveries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid subscription id"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.service.Deliveries(ctx, subID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list deliveries failed", "error", err, "request_id", requestID, "subscription_id", subID)
		httputil.WriteError(w, err)
		return
	}

	out := make([]*DeliveryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toDeliveryResponse(entry))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// Response mapping functions - convert domain objects to HTTP DTOs

type SubscriptionResponse struct {
	ID                  string     `json:"id"`
	AppID               string     `json:"app_id"`
	AppName             string     `json:"app_name,omitempty"`
	URL                 string     `json:"webhook_url"`
	Secret              string     `json:"secret_key,omitempty"`
	Events              []string   `json:"events"`
	Active              bool       `json:"active"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toSubscriptionResponse(sub *models.Subscription, secret string) *SubscriptionResponse {
	events := make([]string, 0, len(sub.Events))
	for _, e := range sub.Events {
		events = append(events, string(e))
	}
	return &SubscriptionResponse{
		ID:                  sub.ID.String(),
		AppID:               sub.AppID.String(),
		AppName:             sub.AppName,
		URL:                 sub.URL,
		Secret:              secret, // Empty string omitted due to omitempty tag
		Events:              events,
		Active:              sub.Active,
		ConsecutiveFailures: sub.ConsecutiveFailures,
		LastSuccessAt:       sub.LastSuccessAt,
		LastFailureAt:       sub.LastFailureAt,
		CreatedAt:           sub.CreatedAt,
	}
}

type DeliveryResponse struct {
	ID             string     `json:"id"`
	EventType      string     `json:"event_type"`
	Attempt        int        `json:"attempt"`
	ResponseStatus int        `json:"response_status,omitempty"`
	ResponseTimeMs int64      `json:"response_time_ms"`
	Success        bool       `json:"success"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toDeliveryResponse(entry *models.DeliveryLogEntry) *DeliveryResponse {
	return &DeliveryResponse{
		ID:             entry.ID.String(),
		EventType:      string(entry.EventType),
		Attempt:        entry.Attempt,
		ResponseStatus: entry.ResponseStatus,
		ResponseTimeMs: entry.ResponseTime.Milliseconds(),
		Success:        entry.Success,
		ErrorMessage:   entry.ErrorMessage,
		NextRetryAt:    entry.NextRetryAt,
		CreatedAt:      entry.CreatedAt,
	}
}
