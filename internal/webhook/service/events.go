package service

import (
	"context"
	"time"

	"taleweave/internal/webhook/models"
	id "taleweave/pkg/domain"
)

// Convenience notifiers. Each builds the payload shape for one domain event
// and hands it to Notify. They are the only place payload shapes are defined,
// so subscribers see a consistent contract.

// NotifyConsentGranted announces a new or renewed consent. The embed token,
// when present, lets the platform render the story at the granted level.
func (s *Service) NotifyConsentGranted(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, shareLevel, embedToken string) {
	s.Notify(ctx, models.Event{
		Type: models.EventConsentGranted,
		Payload: models.Payload{
			StoryID:       storyID.String(),
			AppID:         appID.String(),
			StorytellerID: storytellerID.String(),
			Timestamp:     s.timestamp(),
			Consent: &models.ConsentChange{
				NewLevel:   shareLevel,
				EmbedToken: embedToken,
			},
		},
	})
}

// NotifyConsentRevoked announces a revocation. The payload always carries an
// explicit removal instruction; revocation must be actionable, not merely
// informational.
func (s *Service) NotifyConsentRevoked(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, reason string) {
	s.Notify(ctx, models.Event{
		Type: models.EventConsentRevoked,
		Payload: models.Payload{
			StoryID:        storyID.String(),
			AppID:          appID.String(),
			StorytellerID:  storytellerID.String(),
			Timestamp:      s.timestamp(),
			Consent:        &models.ConsentChange{Reason: reason},
			ActionRequired: models.ActionRemoveImmediately,
		},
	})
}

// NotifyConsentUpdated announces a share-level change, carrying both levels so
// subscribers can diff. A transition to no sharing demands removal.
func (s *Service) NotifyConsentUpdated(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, previousLevel, newLevel string) {
	action := models.ActionUpdateDisplay
	if newLevel == "none" {
		action = models.ActionRemove
	}
	s.Notify(ctx, models.Event{
		Type: models.EventConsentUpdated,
		Payload: models.Payload{
			StoryID:       storyID.String(),
			AppID:         appID.String(),
			StorytellerID: storytellerID.String(),
			Timestamp:     s.timestamp(),
			Consent: &models.ConsentChange{
				PreviousLevel: previousLevel,
				NewLevel:      newLevel,
			},
			ActionRequired: action,
		},
	})
}

// NotifyConsentExpired announces that a consent passed its expiry. Expiry ends
// sharing, so the payload demands removal.
func (s *Service) NotifyConsentExpired(ctx context.Context, storyID id.StoryID, appID id.AppID, storytellerID id.StorytellerID, previousLevel string) {
	s.Notify(ctx, models.Event{
		Type: models.EventConsentExpired,
		Payload: models.Payload{
			StoryID:       storyID.String(),
			AppID:         appID.String(),
			StorytellerID: storytellerID.String(),
			Timestamp:     s.timestamp(),
			Consent: &models.ConsentChange{
				PreviousLevel: previousLevel,
				NewLevel:      "none",
			},
			ActionRequired: models.ActionRemoveExpired,
		},
	})
}

// NotifyStoryUpdated tells subscribers to refresh story content.
func (s *Service) NotifyStoryUpdated(ctx context.Context, storyID id.StoryID, title string, updatedFields []string) {
	s.Notify(ctx, models.Event{
		Type: models.EventStoryUpdated,
		Payload: models.Payload{
			StoryID:   storyID.String(),
			Timestamp: s.timestamp(),
			Story: &models.StoryChange{
				Title:         title,
				UpdatedFields: updatedFields,
			},
			ActionRequired: models.ActionRefreshContent,
		},
	})
}

// NotifyStoryDeleted tells subscribers to remove the story.
func (s *Service) NotifyStoryDeleted(ctx context.Context, storyID id.StoryID) {
	s.Notify(ctx, models.Event{
		Type: models.EventStoryDeleted,
		Payload: models.Payload{
			StoryID:        storyID.String(),
			Timestamp:      s.timestamp(),
			ActionRequired: models.ActionRemoveImmediately,
		},
	})
}

// NotifyCulturalReview announces a cultural review transition
// (approval_required, approved, or denied).
func (s *Service) NotifyCulturalReview(ctx context.Context, eventType models.EventType, storyID id.StoryID, appID id.AppID, status, reviewerNotes string) {
	payload := models.Payload{
		StoryID:   storyID.String(),
		Timestamp: s.timestamp(),
		Cultural: &models.CulturalChange{
			Status:        status,
			ReviewerNotes: reviewerNotes,
		},
	}
	if !appID.IsNil() {
		payload.AppID = appID.String()
	}
	s.Notify(ctx, models.Event{Type: eventType, Payload: payload})
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
