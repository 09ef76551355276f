package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginRejected  EventType = "login_rejected"
	EventTokenRejected  EventType = "token_rejected"
)

// Event represents an authentication event emitted by services and gates.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Subject   domain.Email `json:"subject,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// NewEvent stamps a fresh id and the current time.
func NewEvent(eventType EventType, subject domain.Email, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	TokenID   string    `json:"token_id"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginRejectedPayload payload. Outcome is user_not_found, incorrect_password or forbidden.
type LoginRejectedPayload struct {
	Outcome string `json:"outcome"`
}

// TokenRejectedPayload payload.
type TokenRejectedPayload struct {
	Kind string `json:"kind"`
}
