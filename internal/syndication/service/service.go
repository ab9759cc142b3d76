// Package service implements the consent lifecycle for story syndication:
// grant, update, revoke, revoke-all, and expiry, with an audit change log and
// webhook notifications to the affected platforms.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"taleweave/internal/sentinel"
	"taleweave/internal/story"
	"taleweave/internal/syndication/metrics"
	"taleweave/internal/syndication/models"
	id "taleweave/pkg/domain"
	domainerrors "taleweave/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// ConsentStore persists consent records and the audit change log.
// Error Contract:
// - Get returns sentinel.ErrNotFound when no record exists for the pair
// - List methods return nil slices (no error) when nothing matches
type ConsentStore interface {
	Upsert(ctx context.Context, rec *models.Record) error
	Get(ctx context.Context, storyID id.StoryID, appID id.AppID) (*models.Record, error)
	ListActiveForStory(ctx context.Context, storyID id.StoryID) ([]*models.Record, error)
	ListActiveForApp(ctx context.Context, appID id.AppID) ([]*models.Record, error)
	ListExpiredDue(ctx context.Context, now time.Time) ([]*models.Record, error)
	AppendChange(ctx context.Context, entry *models.ChangeLogEntry) error
	ListChanges(ctx context.Context, consentID id.ConsentID, limit int) ([]*models.ChangeLogEntry, error)
}

// StoryDirectory resolves a story's ownership for denormalization and
// authorization checks.
type StoryDirectory interface {
	Lookup(ctx context.Context, storyID id.StoryID) (*story.Story, error)
}

// Notifier delivers consent transitions to subscribed platforms. Calls are
// fire-and-forget from the consent manager's point of view: delivery outcomes
// are tracked by the webhook pipeline, never surfaced here.
type Notifier interface {
	NotifyConsentGranted(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, shareLevel, embedToken string)
	NotifyConsentRevoked(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, reason string)
	NotifyConsentUpdated(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, previousLevel, newLevel string)
	NotifyConsentExpired(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, previousLevel string)
	NotifyStoryDeleted(ctx context.Context, storyID id.StoryID)
}

// TokenIssuer mints embed tokens attached to grant notifications.
type TokenIssuer interface {
	Issue(storyID id.StoryID, appID id.AppID, shareLevel string) (string, error)
}

// Service is the consent manager.
type Service struct {
	consents  ConsentStore
	directory StoryDirectory
	notifier  Notifier
	logger    *slog.Logger
	metrics   *metrics.Metrics
	issuer    TokenIssuer
	now       func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTokenIssuer enables embed tokens on grant notifications.
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(s *Service) {
		s.issuer = issuer
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

// New creates the consent manager. notifier may be nil; consent state then
// changes without outbound notifications.
func New(consents ConsentStore, directory StoryDirectory, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		consents:  consents,
		directory: directory,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GrantRequest carries the storyteller's sharing terms for one (story, app) pair.
type GrantRequest struct {
	StoryID       id.StoryID
	AppID         id.AppID
	StorytellerID id.StorytellerID
	Settings      models.Settings
}

// Grant creates or renews consent. Granting the same pair again replaces the
// terms in place; a grant after a revocation reopens sharing. The consent is
// durable before any notification goes out, and a notification failure never
// undoes the grant.
func (s *Service) Grant(ctx context.Context, req GrantRequest) (*models.Record, error) {
	if err := validateSettings(req.Settings); err != nil {
		return nil, err
	}

	st, err := s.authorize(ctx, req.StoryID, req.StorytellerID)
	if err != nil {
		return nil, err
	}

	var previous *models.StateSnapshot
	if existing, err := s.consents.Get(ctx, req.StoryID, req.AppID); err == nil {
		previous = existing.Snapshot()
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load consent")
	}

	now := s.now()
	rec := &models.Record{
		StoryID:        req.StoryID,
		AppID:          req.AppID,
		StorytellerID:  req.StorytellerID,
		OrganizationID: st.OrganizationID,
		TenantID:       st.TenantID,
		Granted:        true,
		GrantedAt:      &now,
		Settings:       req.Settings,
		UpdatedAt:      now,
	}
	if err := s.consents.Upsert(ctx, rec); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to save consent")
	}

	s.appendChange(ctx, rec, models.ChangeGranted, req.StorytellerID, previous, "")

	if s.notifier != nil {
		token := s.embedToken(ctx, rec)
		s.notifier.NotifyConsentGranted(ctx, rec.StoryID, rec.AppID, rec.StorytellerID,
			string(rec.ShareLevel()), token)
	}
	return rec, nil
}

// Revoke withdraws consent. Revoking an already revoked pair is a no-op.
// The revocation notification is sent before Revoke returns, so by the time
// the storyteller sees the confirmation the platform has been told.
func (s *Service) Revoke(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, reason string) error {
	rec, err := s.loadOwned(ctx, storyID, appID, storytellerID)
	if err != nil {
		return err
	}
	if !rec.Granted {
		return nil
	}

	previous := rec.Snapshot()
	now := s.now()
	rec.Granted = false
	rec.RevokedAt = &now
	rec.UpdatedAt = now
	if err := s.consents.Upsert(ctx, rec); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to revoke consent")
	}

	s.appendChange(ctx, rec, models.ChangeRevoked, storytellerID, previous, reason)

	if s.notifier != nil {
		s.notifier.NotifyConsentRevoked(ctx, rec.StoryID, rec.AppID, rec.StorytellerID, reason)
	}
	return nil
}

// UpdateRequest carries a partial change to an active consent. Nil fields are
// left untouched.
type UpdateRequest struct {
	Scope                    *models.ContentScope
	Attribution              *models.Attribution
	AllowMediaDownload       *bool
	RequiresCulturalApproval *bool
	CulturalRestrictions     map[string]any
	ExpiresAt                *time.Time
}

// Update changes the terms of an active consent and notifies the platform
// with both the previous and the new share level so it can diff.
func (s *Service) Update(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, req UpdateRequest) (*models.Record, error) {
	rec, err := s.loadOwned(ctx, storyID, appID, storytellerID)
	if err != nil {
		return nil, err
	}
	if !rec.Granted {
		return nil, domainerrors.New(domainerrors.CodeInvalidConsent, "consent is not active")
	}

	previous := rec.Snapshot()
	previousLevel := rec.ShareLevel()

	if req.Scope != nil {
		if !req.Scope.IsValid() {
			return nil, domainerrors.New(domainerrors.CodeValidation, "invalid content scope")
		}
		rec.Settings.Scope = *req.Scope
	}
	if req.Attribution != nil {
		if !req.Attribution.IsValid() {
			return nil, domainerrors.New(domainerrors.CodeValidation, "invalid attribution")
		}
		rec.Settings.Attribution = *req.Attribution
	}
	if req.AllowMediaDownload != nil {
		rec.Settings.AllowMediaDownload = *req.AllowMediaDownload
	}
	if req.RequiresCulturalApproval != nil {
		rec.Settings.RequiresCulturalApproval = *req.RequiresCulturalApproval
	}
	if req.CulturalRestrictions != nil {
		rec.Settings.CulturalRestrictions = req.CulturalRestrictions
	}
	if req.ExpiresAt != nil {
		expires := *req.ExpiresAt
		rec.Settings.ExpiresAt = &expires
	}

	rec.UpdatedAt = s.now()
	if err := s.consents.Upsert(ctx, rec); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to update consent")
	}

	s.appendChange(ctx, rec, models.ChangeUpdated, storytellerID, previous, "")

	if s.notifier != nil {
		s.notifier.NotifyConsentUpdated(ctx, rec.StoryID, rec.AppID, rec.StorytellerID,
			string(previousLevel), string(rec.ShareLevel()))
	}
	return rec, nil
}

// RevokeAll withdraws every active consent for a story. Each app's revocation
// runs and is notified independently; one failure does not stop the others.
// The first error is returned after all revocations settle.
func (s *Service) RevokeAll(ctx context.Context, storyID id.StoryID, storytellerID id.StorytellerID, reason string) error {
	recs, err := s.consents.ListActiveForStory(ctx, storyID)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list consents")
	}

	var g errgroup.Group
	for _, rec := range recs {
		rec := rec
		g.Go(func() error {
			return s.Revoke(ctx, storyID, rec.AppID, storytellerID, reason)
		})
	}
	return g.Wait()
}

// OnStoryDeleted cascades a story deletion: every consent is revoked, then
// subscribers are told to remove the story.
func (s *Service) OnStoryDeleted(ctx context.Context, storyID id.StoryID, storytellerID id.StorytellerID) error {
	if err := s.RevokeAll(ctx, storyID, storytellerID, "Story deleted"); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyStoryDeleted(ctx, storyID)
	}
	return nil
}

// ConsentedApps lists the apps currently allowed to show the story.
func (s *Service) ConsentedApps(ctx context.Context, storyID id.StoryID) ([]*models.Record, error) {
	recs, err := s.consents.ListActiveForStory(ctx, storyID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list consents")
	}
	return recs, nil
}

// StoriesForApp lists the stories one app currently holds consent for.
func (s *Service) StoriesForApp(ctx context.Context, appID id.AppID) ([]*models.Record, error) {
	recs, err := s.consents.ListActiveForApp(ctx, appID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list consents")
	}
	return recs, nil
}

// Changes returns the audit trail for one consent, newest first.
func (s *Service) Changes(ctx context.Context, consentID id.ConsentID, limit int) ([]*models.ChangeLogEntry, error) {
	entries, err := s.consents.ListChanges(ctx, consentID, limit)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list consent changes")
	}
	return entries, nil
}

// ExpireDue flips every consent whose deadline has passed, records the
// transition, and notifies the affected platform. Per-record failures are
// logged and skipped so one bad row cannot stall the sweep. Returns the
// number of consents expired.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	recs, err := s.consents.ListExpiredDue(ctx, now)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list expired consents")
	}

	expired := 0
	for _, rec := range recs {
		previous := rec.Snapshot()
		previousLevel := rec.ShareLevel()

		rec.Granted = false
		rec.UpdatedAt = now
		if err := s.consents.Upsert(ctx, rec); err != nil {
			s.logWarn(ctx, "failed to expire consent",
				"consent_id", rec.ID, "story_id", rec.StoryID, "app_id", rec.AppID, "error", err)
			continue
		}

		s.appendChange(ctx, rec, models.ChangeExpired, rec.StorytellerID, previous, "Consent expired")

		if s.notifier != nil {
			s.notifier.NotifyConsentExpired(ctx, rec.StoryID, rec.AppID, rec.StorytellerID,
				string(previousLevel))
		}
		if s.metrics != nil {
			s.metrics.IncExpired()
		}
		expired++
	}
	return expired, nil
}

// authorize resolves the story and verifies the caller is its storyteller.
func (s *Service) authorize(ctx context.Context, storyID id.StoryID, storytellerID id.StorytellerID) (*story.Story, error) {
	st, err := s.directory.Lookup(ctx, storyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "story not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to look up story")
	}
	if st.StorytellerID != storytellerID {
		return nil, domainerrors.New(domainerrors.CodeForbidden, "only the storyteller can manage consent")
	}
	return st, nil
}

// loadOwned fetches the consent record and verifies ownership.
func (s *Service) loadOwned(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID) (*models.Record, error) {
	rec, err := s.consents.Get(ctx, storyID, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "consent not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load consent")
	}
	if rec.StorytellerID != storytellerID {
		return nil, domainerrors.New(domainerrors.CodeForbidden, "only the storyteller can manage consent")
	}
	return rec, nil
}

// appendChange writes the audit entry. Audit failures are logged, never
// allowed to fail the consent operation itself.
func (s *Service) appendChange(ctx context.Context, rec *models.Record, changeType models.ChangeType, actor id.StorytellerID, previous *models.StateSnapshot, reason string) {
	entry := &models.ChangeLogEntry{
		ConsentID:         rec.ID,
		StoryID:           rec.StoryID,
		AppID:             rec.AppID,
		ChangeType:        changeType,
		ChangedBy:         actor,
		PreviousState:     previous,
		NewState:          rec.Snapshot(),
		Reason:            reason,
		WebhooksTriggered: s.notifier != nil,
		CreatedAt:         s.now(),
	}
	if err := s.consents.AppendChange(ctx, entry); err != nil {
		s.logWarn(ctx, "failed to append consent change log",
			"consent_id", rec.ID, "change_type", changeType, "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncChange(string(changeType))
	}
}

// embedToken mints a token for the grant notification. Failure to mint is not
// failure to grant; the platform can fetch a token through the API later.
func (s *Service) embedToken(ctx context.Context, rec *models.Record) string {
	if s.issuer == nil {
		return ""
	}
	token, err := s.issuer.Issue(rec.StoryID, rec.AppID, string(rec.ShareLevel()))
	if err != nil {
		s.logWarn(ctx, "failed to issue embed token",
			"story_id", rec.StoryID, "app_id", rec.AppID, "error", err)
		return ""
	}
	return token
}

func validateSettings(settings models.Settings) error {
	if !settings.Scope.IsValid() {
		return domainerrors.New(domainerrors.CodeValidation, "invalid content scope")
	}
	if !settings.Attribution.IsValid() {
		return domainerrors.New(domainerrors.CodeValidation, "invalid attribution")
	}
	return nil
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
