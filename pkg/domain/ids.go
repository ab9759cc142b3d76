// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "taleweave/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a StoryID where an AppID is expected.
type (
	StoryID        uuid.UUID
	StorytellerID  uuid.UUID
	AppID          uuid.UUID
	ConsentID      uuid.UUID
	SubscriptionID uuid.UUID
	TenantID       uuid.UUID
	OrganizationID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseStoryID(s string) (StoryID, error) {
	id, err := parseUUID(s, "story ID")
	return StoryID(id), err
}

func ParseStorytellerID(s string) (StorytellerID, error) {
	id, err := parseUUID(s, "storyteller ID")
	return StorytellerID(id), err
}

func ParseAppID(s string) (AppID, error) {
	id, err := parseUUID(s, "app ID")
	return AppID(id), err
}

func ParseConsentID(s string) (ConsentID, error) {
	id, err := parseUUID(s, "consent ID")
	return ConsentID(id), err
}

func ParseSubscriptionID(s string) (SubscriptionID, error) {
	id, err := parseUUID(s, "subscription ID")
	return SubscriptionID(id), err
}

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseOrganizationID(s string) (OrganizationID, error) {
	id, err := parseUUID(s, "organization ID")
	return OrganizationID(id), err
}

// String methods - for logging and debugging.

func (id StoryID) String() string        { return uuid.UUID(id).String() }
func (id StorytellerID) String() string  { return uuid.UUID(id).String() }
func (id AppID) String() string          { return uuid.UUID(id).String() }
func (id ConsentID) String() string      { return uuid.UUID(id).String() }
func (id SubscriptionID) String() string { return uuid.UUID(id).String() }
func (id TenantID) String() string       { return uuid.UUID(id).String() }
func (id OrganizationID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id StoryID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id StorytellerID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AppID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SubscriptionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which lets store lookups return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
