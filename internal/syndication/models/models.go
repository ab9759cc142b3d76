// Package models defines the syndication consent domain: what a storyteller
// has agreed to share with which external app, and the audit trail of every
// consent transition.
package models

import (
	"time"

	"github.com/google/uuid"

	id "taleweave/pkg/domain"
)

// ContentScope is how much of a story an app may show.
type ContentScope string

const (
	ScopeFull      ContentScope = "full"
	ScopeSummary   ContentScope = "summary"
	ScopeTitleOnly ContentScope = "title_only"
)

// IsValid reports whether the scope is one of the defined values.
func (s ContentScope) IsValid() bool {
	switch s {
	case ScopeFull, ScopeSummary, ScopeTitleOnly:
		return true
	}
	return false
}

// Attribution is how the storyteller is credited on the consuming platform.
type Attribution string

const (
	AttributionNamed     Attribution = "named"
	AttributionAnonymous Attribution = "anonymous"
)

// IsValid reports whether the attribution is one of the defined values.
func (a Attribution) IsValid() bool {
	return a == AttributionNamed || a == AttributionAnonymous
}

// ShareLevel is the externally visible summary of a consent. It is derived,
// never stored: "none" means not currently granted.
type ShareLevel string

const (
	ShareLevelFull      ShareLevel = "full"
	ShareLevelSummary   ShareLevel = "summary"
	ShareLevelTitleOnly ShareLevel = "title_only"
	ShareLevelNone      ShareLevel = "none"
)

// Settings holds the storyteller's sharing terms for one (story, app) pair.
type Settings struct {
	Scope                    ContentScope   `json:"scope"`
	Attribution              Attribution    `json:"attribution"`
	AllowMediaDownload       bool           `json:"allow_media_download"`
	RequiresCulturalApproval bool           `json:"requires_cultural_approval"`
	CulturalRestrictions     map[string]any `json:"cultural_restrictions,omitempty"`
	ExpiresAt                *time.Time     `json:"expires_at,omitempty"`
}

// Record is one consent decision, keyed by (story, app). Organization and
// tenant are denormalized from the story at grant time so consent queries
// never join back into story storage.
type Record struct {
	ID             id.ConsentID
	StoryID        id.StoryID
	AppID          id.AppID
	StorytellerID  id.StorytellerID
	OrganizationID id.OrganizationID
	TenantID       id.TenantID

	Granted   bool
	GrantedAt *time.Time
	RevokedAt *time.Time
	Settings  Settings

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShareLevel derives the record's current share level from its state.
func (r Record) ShareLevel() ShareLevel {
	if !r.Granted {
		return ShareLevelNone
	}
	switch r.Settings.Scope {
	case ScopeFull:
		return ShareLevelFull
	case ScopeSummary:
		return ShareLevelSummary
	default:
		return ShareLevelTitleOnly
	}
}

// Expired reports whether the consent has a deadline that has passed.
func (r Record) Expired(now time.Time) bool {
	return r.Granted && r.Settings.ExpiresAt != nil && now.After(*r.Settings.ExpiresAt)
}

// ChangeType classifies a consent transition in the audit log.
type ChangeType string

const (
	ChangeGranted ChangeType = "granted"
	ChangeRevoked ChangeType = "revoked"
	ChangeUpdated ChangeType = "updated"
	ChangeExpired ChangeType = "expired"
)

// StateSnapshot freezes the consent state before or after a transition.
// Snapshots are stored in the change log so the audit trail stays readable
// even after later updates rewrite the record.
type StateSnapshot struct {
	Granted    bool       `json:"granted"`
	ShareLevel ShareLevel `json:"share_level"`
	Settings   *Settings  `json:"settings,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Snapshot captures the record's current state for the change log.
func (r Record) Snapshot() *StateSnapshot {
	settings := r.Settings
	return &StateSnapshot{
		Granted:    r.Granted,
		ShareLevel: r.ShareLevel(),
		Settings:   &settings,
		RevokedAt:  r.RevokedAt,
	}
}

// ChangeLogEntry is one immutable row in the consent audit trail.
type ChangeLogEntry struct {
	ID            uuid.UUID
	ConsentID     id.ConsentID
	StoryID       id.StoryID
	AppID         id.AppID
	ChangeType    ChangeType
	ChangedBy     id.StorytellerID
	PreviousState *StateSnapshot
	NewState      *StateSnapshot
	Reason        string
	// WebhooksTriggered records whether subscribers were notified of this
	// change; it is audit metadata, not a delivery guarantee.
	WebhooksTriggered bool
	CreatedAt         time.Time
}
