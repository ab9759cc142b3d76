package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taleweave/internal/platform/httputil"
	"taleweave/internal/platform/middleware"
	"taleweave/internal/syndication/models"
	"taleweave/internal/syndication/service"
	id "taleweave/pkg/domain"
	domainerrors "taleweave/pkg/domain-errors"
)

// Service defines the consent operations the handler exposes.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	Grant(ctx context.Context, req service.GrantRequest) (*models.Record, error)
	Revoke(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, reason string) error
	Update(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, req service.UpdateRequest) (*models.Record, error)
	ConsentedApps(ctx context.Context, storyID id.StoryID) ([]*models.Record, error)
	StoriesForApp(ctx context.Context, appID id.AppID) ([]*models.Record, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/syndication/consents", h.HandleGrant)
	r.Post("/syndication/consents/revoke", h.HandleRevoke)
	r.Patch("/syndication/consents", h.HandleUpdate)
	r.Get("/syndication/stories/{storyID}/apps", h.HandleConsentedApps)
	r.Get("/syndication/apps/{appID}/stories", h.HandleStoriesForApp)
}

// HandleGrant creates or renews consent for a (story, app) pair.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndValidate[GrantConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cmd, err := req.ToRequest()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Grant(ctx, cmd)
	if err != nil {
		h.logger.ErrorContext(ctx, "grant consent failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toConsentResponse(rec))
}

// HandleRevoke withdraws consent and confirms only after the platform has
// been notified.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndValidate[RevokeConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	storyID, appID, tellerID, err := req.ids()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Revoke(ctx, storyID, appID, tellerID, req.Reason); err != nil {
		h.logger.ErrorContext(ctx, "revoke consent failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

// HandleUpdate applies a partial change to an active consent.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndValidate[UpdateConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	storyID, appID, tellerID, err := req.ids()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Update(ctx, storyID, appID, tellerID, req.ToRequest())
	if err != nil {
		h.logger.ErrorContext(ctx, "update consent failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(rec))
}

// HandleConsentedApps lists the apps a story is currently shared with.
func (h *Handler) HandleConsentedApps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	storyID, err := id.ParseStoryID(chi.URLParam(r, "storyID"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid story id"))
		return
	}

	recs, err := h.service.ConsentedApps(ctx, storyID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list consented apps failed", "error", err, "request_id", requestID, "story_id", storyID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toConsentListResponse(recs))
}

// HandleStoriesForApp lists the stories one app holds consent for.
func (h *Handler) HandleStoriesForApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	appID, err := id.ParseAppID(chi.URLParam(r, "appID"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid app id"))
		return
	}

	recs, err := h.service.StoriesForApp(ctx, appID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list stories for app failed", "error", err, "request_id", requestID, "app_id", appID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toConsentListResponse(recs))
}

// Response mapping functions - convert domain objects to HTTP DTOs

type ConsentResponse struct {
	ID            string         `json:"id"`
	StoryID       string         `json:"story_id"`
	AppID         string         `json:"app_id"`
	StorytellerID string         `json:"storyteller_id"`
	Granted       bool           `json:"granted"`
	ShareLevel    string         `json:"share_level"`
	Settings      map[string]any `json:"settings"`
	GrantedAt     *time.Time     `json:"granted_at,omitempty"`
	RevokedAt     *time.Time     `json:"revoked_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func toConsentResponse(rec *models.Record) *ConsentResponse {
	settings := map[string]any{
		"scope":                      string(rec.Settings.Scope),
		"attribution":                string(rec.Settings.Attribution),
		"allow_media_download":       rec.Settings.AllowMediaDownload,
		"requires_cultural_approval": rec.Settings.RequiresCulturalApproval,
	}
	if rec.Settings.CulturalRestrictions != nil {
		settings["cultural_restrictions"] = rec.Settings.CulturalRestrictions
	}
	if rec.Settings.ExpiresAt != nil {
		settings["expires_at"] = rec.Settings.ExpiresAt
	}
	return &ConsentResponse{
		ID:            rec.ID.String(),
		StoryID:       rec.StoryID.String(),
		AppID:         rec.AppID.String(),
		StorytellerID: rec.StorytellerID.String(),
		Granted:       rec.Granted,
		ShareLevel:    string(rec.ShareLevel()),
		Settings:      settings,
		GrantedAt:     rec.GrantedAt,
		RevokedAt:     rec.RevokedAt,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func toConsentListResponse(recs []*models.Record) []*ConsentResponse {
	out := make([]*ConsentResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toConsentResponse(rec))
	}
	return out
}
