package handler

import (
	"time"

	"taleweave/internal/syndication/models"
	"taleweave/internal/syndication/service"
	id "taleweave/pkg/domain"
	domainerrors "taleweave/pkg/domain-errors"
)

// GrantConsentRequest is the wire shape for creating or renewing consent.
type GrantConsentRequest struct {
	StoryID                  string         `json:"story_id"`
	AppID                    string         `json:"app_id"`
	StorytellerID            string         `json:"storyteller_id"`
	Scope                    string         `json:"scope"`
	Attribution              string         `json:"attribution"`
	AllowMediaDownload       bool           `json:"allow_media_download"`
	RequiresCulturalApproval bool           `json:"requires_cultural_approval"`
	CulturalRestrictions     map[string]any `json:"cultural_restrictions,omitempty"`
	ExpiresAt                *time.Time     `json:"expires_at,omitempty"`
}

func (r *GrantConsentRequest) Validate() error {
	if r.StoryID == "" || r.AppID == "" || r.StorytellerID == "" {
		return domainerrors.New(domainerrors.CodeValidation, "story_id, app_id, and storyteller_id are required")
	}
	if !models.ContentScope(r.Scope).IsValid() {
		return domainerrors.New(domainerrors.CodeValidation, "scope must be full, summary, or title_only")
	}
	if !models.Attribution(r.Attribution).IsValid() {
		return domainerrors.New(domainerrors.CodeValidation, "attribution must be named or anonymous")
	}
	return nil
}

func (r *GrantConsentRequest) ToRequest() (service.GrantRequest, error) {
	storyID, appID, tellerID, err := parseIDs(r.StoryID, r.AppID, r.StorytellerID)
	if err != nil {
		return service.GrantRequest{}, err
	}
	return service.GrantRequest{
		StoryID:       storyID,
		AppID:         appID,
		StorytellerID: tellerID,
		Settings: models.Settings{
			Scope:                    models.ContentScope(r.Scope),
			Attribution:              models.Attribution(r.Attribution),
			AllowMediaDownload:       r.AllowMediaDownload,
			RequiresCulturalApproval: r.RequiresCulturalApproval,
			CulturalRestrictions:     r.CulturalRestrictions,
			ExpiresAt:                r.ExpiresAt,
		},
	}, nil
}

// RevokeConsentRequest is the wire shape for withdrawing consent.
type RevokeConsentRequest struct {
	StoryID       string `json:"story_id"`
	AppID         string `json:"app_id"`
	StorytellerID string `json:"storyteller_id"`
	Reason        string `json:"reason,omitempty"`
}

func (r *RevokeConsentRequest) Validate() error {
	if r.StoryID == "" || r.AppID == "" || r.StorytellerID == "" {
		return domainerrors.New(domainerrors.CodeValidation, "story_id, app_id, and storyteller_id are required")
	}
	return nil
}

func (r *RevokeConsentRequest) ids() (id.StoryID, id.AppID, id.StorytellerID, error) {
	return parseIDs(r.StoryID, r.AppID, r.StorytellerID)
}

// UpdateConsentRequest is the wire shape for a partial consent change.
// Omitted fields keep their current value.
type UpdateConsentRequest struct {
	StoryID                  string         `json:"story_id"`
	AppID                    string         `json:"app_id"`
	StorytellerID            string         `json:"storyteller_id"`
	Scope                    *string        `json:"scope,omitempty"`
	Attribution              *string        `json:"attribution,omitempty"`
	AllowMediaDownload       *bool          `json:"allow_media_download,omitempty"`
	RequiresCulturalApproval *bool          `json:"requires_cultural_approval,omitempty"`
	CulturalRestrictions     map[string]any `json:"cultural_restrictions,omitempty"`
	ExpiresAt                *time.Time     `json:"expires_at,omitempty"`
}

func (r *UpdateConsentRequest) Validate() error {
	if r.StoryID == "" || r.AppID == "" || r.StorytellerID == "" {
		return domainerrors.New(domainerrors.CodeValidation, "story_id, app_id, and storyteller_id are required")
	}
	if r.Scope != nil && !models.ContentScope(*r.Scope).IsValid() {
		return domainerrors.New(domainerrors.CodeValidation, "scope must be full, summary, or title_only")
	}
	if r.Attribution != nil && !models.Attribution(*r.Attribution).IsValid() {
		return domainerrors.New(domainerrors.CodeValidation, "attribution must be named or anonymous")
	}
	return nil
}

func (r *UpdateConsentRequest) ids() (id.StoryID, id.AppID, id.StorytellerID, error) {
	return parseIDs(r.StoryID, r.AppID, r.StorytellerID)
}

func (r *UpdateConsentRequest) ToRequest() service.UpdateRequest {
	req := service.UpdateRequest{
		AllowMediaDownload:       r.AllowMediaDownload,
		RequiresCulturalApproval: r.RequiresCulturalApproval,
		CulturalRestrictions:     r.CulturalRestrictions,
		ExpiresAt:                r.ExpiresAt,
	}
	if r.Scope != nil {
		scope := models.ContentScope(*r.Scope)
		req.Scope = &scope
	}
	if r.Attribution != nil {
		attribution := models.Attribution(*r.Attribution)
		req.Attribution = &attribution
	}
	return req
}

func parseIDs(storyStr, appStr, tellerStr string) (id.StoryID, id.AppID, id.StorytellerID, error) {
	storyID, err := id.ParseStoryID(storyStr)
	if err != nil {
		return id.StoryID{}, id.AppID{}, id.StorytellerID{}, domainerrors.New(domainerrors.CodeBadRequest, "invalid story id")
	}
	appID, err := id.ParseAppID(appStr)
	if err != nil {
		return id.StoryID{}, id.AppID{}, id.StorytellerID{}, domainerrors.New(domainerrors.CodeBadRequest, "invalid app id")
	}
	tellerID, err := id.ParseStorytellerID(tellerStr)
	if err != nil {
		return id.StoryID{}, id.AppID{}, id.StorytellerID{}, domainerrors.New(domainerrors.CodeBadRequest, "invalid storyteller id")
	}
	return storyID, appID, tellerID, nil
}
