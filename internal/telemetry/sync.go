package telemetry

import (
	"context"
	"log"
	"time"
)

// Publisher delivers envelopes to an external broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// SyncEmitter publishes session/connection lifecycle events for fleet
// monitoring of headless client deployments.
type SyncEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// SyncEnvelope is the published event shape.
type SyncEnvelope struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	OccurredAt    string      `json:"occurred_at"`
	Service       string      `json:"service"`
	Environment   string      `json:"environment"`
	SessionID     string      `json:"session_id,omitempty"`
	Payload       SyncPayload `json:"payload"`
}

// SyncPayload carries the event kind and a human-readable description.
type SyncPayload struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// NewSyncEmitter builds an emitter bound to one routing key.
func NewSyncEmitter(publisher Publisher, routingKey, service, environment string) *SyncEmitter {
	return &SyncEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one lifecycle event. A nil emitter or publisher is a no-op
// so callers never guard their call sites.
func (e *SyncEmitter) Emit(ctx context.Context, kind, text, sessionID string) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := SyncEnvelope{
		SchemaVersion: 1,
		EventType:     "client_sync",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		SessionID:     sessionID,
		Payload: SyncPayload{
			Kind: kind,
			Text: text,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("sync event publish failed: %v", err)
	}
}
