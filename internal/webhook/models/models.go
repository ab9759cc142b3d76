package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	id "taleweave/pkg/domain"
)

// EventType identifies what happened to a story or its consent.
type EventType string

const (
	EventConsentGranted EventType = "consent.granted"
	EventConsentRevoked EventType = "consent.revoked"
	EventConsentUpdated EventType = "consent.updated"
	EventConsentExpired EventType = "consent.expired"

	EventStoryUpdated EventType = "story.updated"
	EventStoryDeleted EventType = "story.deleted"

	EventCulturalApprovalRequired EventType = "cultural.approval_required"
	EventCulturalApproved         EventType = "cultural.approved"
	EventCulturalDenied           EventType = "cultural.denied"
)

// IsValid reports whether the event type is one this platform emits.
func (t EventType) IsValid() bool {
	switch t {
	case EventConsentGranted, EventConsentRevoked, EventConsentUpdated, EventConsentExpired,
		EventStoryUpdated, EventStoryDeleted,
		EventCulturalApprovalRequired, EventCulturalApproved, EventCulturalDenied:
		return true
	}
	return false
}

// Action-required hints delivered to subscribers. Revocations and every
// transition to no-sharing must carry an explicit removal instruction so
// storyteller sovereignty is actionable, not merely informational.
const (
	ActionRemoveImmediately = "Remove story from your platform immediately"
	ActionRemove            = "Remove story from your platform"
	ActionRemoveExpired     = "Remove story from your platform - consent has expired"
	ActionUpdateDisplay     = "Update story display to match new consent level"
	ActionRefreshContent    = "Refresh story content from API"
)

// Event is the in-memory notification fanned out to subscribers. It is never
// persisted; the delivery log stores the encoded wire payload instead.
type Event struct {
	Type    EventType
	Payload Payload
}

// Payload is the event-specific data block of the wire envelope.
type Payload struct {
	StoryID        string          `json:"story_id"`
	AppID          string          `json:"app_id,omitempty"`
	StorytellerID  string          `json:"storyteller_id,omitempty"`
	Timestamp      string          `json:"timestamp"`
	Consent        *ConsentChange  `json:"consent,omitempty"`
	Story          *StoryChange    `json:"story,omitempty"`
	Cultural       *CulturalChange `json:"cultural,omitempty"`
	ActionRequired string          `json:"action_required,omitempty"`
}

// ConsentChange describes a share-level transition.
type ConsentChange struct {
	PreviousLevel string `json:"previous_level,omitempty"`
	NewLevel      string `json:"new_level,omitempty"`
	Reason        string `json:"reason,omitempty"`
	// EmbedToken is only included on consent.granted. It lets the receiving
	// platform render the story at the consented share level.
	EmbedToken string `json:"embed_token,omitempty"`
}

// StoryChange describes which story fields changed.
type StoryChange struct {
	Title         string   `json:"title,omitempty"`
	UpdatedFields []string `json:"updated_fields,omitempty"`
}

// CulturalChange describes a cultural review outcome.
type CulturalChange struct {
	Status        string `json:"status,omitempty"`
	ReviewerNotes string `json:"reviewer_notes,omitempty"`
}

// Envelope is the wire format POSTed to subscribers.
//
// The envelope is marshaled exactly once per delivery; the resulting bytes are
// both signed and sent, so the signature a consumer recomputes over the body
// always matches. Field order is fixed by this struct definition.
type Envelope struct {
	Event     EventType `json:"event"`
	Timestamp string    `json:"timestamp"`
	Data      Payload   `json:"data"`
}

// Encode produces the canonical wire bytes for the event.
func (e Event) Encode(now time.Time) ([]byte, error) {
	return json.Marshal(Envelope{
		Event:     e.Type,
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      e.Payload,
	})
}

// Subscription is one (external app, endpoint) registration.
type Subscription struct {
	ID                  id.SubscriptionID
	AppID               id.AppID
	AppName             string
	URL                 string
	SecretKey           string
	Events              []EventType
	Active              bool
	ConsecutiveFailures int
	LastTriggeredAt     *time.Time
	LastSuccessAt       *time.Time
	LastFailureAt       *time.Time
	CreatedAt           time.Time
}

// WantsEvent reports whether the subscription is registered for the event type.
func (s Subscription) WantsEvent(t EventType) bool {
	for _, e := range s.Events {
		if e == t {
			return true
		}
	}
	return false
}

// DeliveryResult captures the outcome of a single delivery attempt.
// The executor never returns an error; network failures land in ErrorMessage.
type DeliveryResult struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	ResponseTime time.Duration
	ErrorMessage string
}

// PermanentFailure reports whether the subscriber rejected the request with a
// client error. 4xx responses are configuration problems on the subscriber's
// side and retrying cannot fix them.
func (r DeliveryResult) PermanentFailure() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// DeliveryLogEntry is the append-only record of one delivery attempt.
type DeliveryLogEntry struct {
	ID             uuid.UUID
	SubscriptionID id.SubscriptionID
	EventType      EventType
	Payload        []byte
	Attempt        int
	ResponseStatus int
	ResponseBody   string
	ResponseTime   time.Duration
	Success        bool
	ErrorMessage   string
	NextRetryAt    *time.Time
	CreatedAt      time.Time
}
