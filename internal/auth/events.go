package auth

import (
	"context"
	"time"

	"college-erp/internal/account"

	"github.com/google/uuid"
)

const (
	EventSignedIn  = "auth.signed_in"
	EventSignedOut = "auth.signed_out"
)

// Event is published after a successful sign-in or logout.
type Event struct {
	Type       string       `json:"type"`
	AccountID  uuid.UUID    `json:"accountId"`
	Email      string       `json:"email"`
	Role       account.Role `json:"role"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// EventPublisher delivers events keyed by account ID. NATS and Kafka producers implement it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}
