package telemetry

import (
	"context"
	"log"
	"time"

	"wachat-service/internal/observability"
)

// AuditEnvelope is the record emitted after each ingestion batch.
type AuditEnvelope struct {
	Source     string    `json:"source"`
	PayloadID  string    `json:"payload_id"`
	Users      int       `json:"users_upserted"`
	Messages   int       `json:"messages_created"`
	Statuses   int       `json:"statuses_applied"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	DurationMS int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// AuditEmitter publishes ingestion batch summaries to the broker and
// mirrors them to the service log.
type AuditEmitter struct {
	routingKey string
}

func NewAuditEmitter(routingKey string) *AuditEmitter {
	return &AuditEmitter{routingKey: routingKey}
}

func (e *AuditEmitter) Emit(ctx context.Context, envelope AuditEnvelope) {
	if envelope.FinishedAt.IsZero() {
		envelope.FinishedAt = time.Now().UTC()
	}

	log.Printf("ingest audit: payload=%s users=%d messages=%d statuses=%d skipped=%d errored=%d took=%dms",
		envelope.PayloadID, envelope.Users, envelope.Messages, envelope.Statuses,
		envelope.Skipped, envelope.Errored, envelope.DurationMS)

	event := observability.NewEnvelope("ingest_audit", "batch_summary", envelope)
	if err := observability.PublishEvent(ctx, e.routingKey, event, nil); err != nil {
		log.Printf("ingest audit: publish failed: %v", err)
	}
}
