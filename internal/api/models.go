package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/eventhost/internal/events"
)

// TokenRequest defines the payload for the token endpoint.
type TokenRequest struct {
	Password string `json:"password" validate:"required,max=72"`
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// ExpiresAt is the RFC 3339 expiry of the token
	ExpiresAt string `json:"expires_at"`
}

// PublishRequest defines the payload for publishing an event.
type PublishRequest struct {
	Topic   string          `json:"topic" validate:"required,max=255"`
	Payload json.RawMessage `json:"payload"`
}

// PublishResponse is returned once an event is accepted.
type PublishResponse struct {
	ID     uuid.UUID `json:"id"`
	Topic  string    `json:"topic"`
	Status string    `json:"status"`
}

// EventResponse describes a journaled event.
type EventResponse struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Status    events.Status   `json:"status"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StatusResponse reports the hosted runner and bus state.
type StatusResponse struct {
	Runner RunnerStatus `json:"runner"`
	Bus    events.Stats `json:"bus"`
}

// RunnerStatus is the state of the hosted runner.
type RunnerStatus struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Exited bool   `json:"exited"`
	Error  string `json:"error,omitempty"`
}
