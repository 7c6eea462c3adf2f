package ingest

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"wachat-service/internal/config"
	"wachat-service/internal/conversation"
	"wachat-service/internal/models"
	"wachat-service/internal/observability"
	"wachat-service/internal/repositories"
	"wachat-service/internal/telemetry"
)

// Summary totals one processed payload envelope.
type Summary struct {
	UsersUpserted   int
	MessagesCreated int
	StatusesApplied int
	Skipped         int
	Errored         int
}

// Ingestor applies webhook payload envelopes to storage. Processing is
// batch-oriented and fully idempotent: replaying an envelope, or the same
// message or status inside fresh envelopes, changes nothing. Ingested
// messages are never broadcast; clients pick them up on the next fetch.
type Ingestor struct {
	users    repositories.UserRepository
	messages repositories.MessageRepository
	convs    repositories.ConversationRepository
	payloads repositories.PayloadRepository
	audit    *telemetry.AuditEmitter
	cfg      config.Config
}

// NewIngestor constructs an Ingestor. audit may be nil.
func NewIngestor(
	users repositories.UserRepository,
	messages repositories.MessageRepository,
	convs repositories.ConversationRepository,
	payloads repositories.PayloadRepository,
	audit *telemetry.AuditEmitter,
	cfg config.Config,
) *Ingestor {
	return &Ingestor{
		users:    users,
		messages: messages,
		convs:    convs,
		payloads: payloads,
		audit:    audit,
		cfg:      cfg,
	}
}

// ProcessPayload walks every entry and change of the envelope. Malformed
// items are counted and skipped so one bad record never poisons the batch.
func (in *Ingestor) ProcessPayload(ctx context.Context, payload WebhookPayload) (Summary, error) {
	started := time.Now()
	var sum Summary

	if payload.ID != "" {
		created, err := in.payloads.Insert(ctx, payload.ID, payload.PayloadType)
		if err != nil {
			return sum, err
		}
		if !created {
			sum.Skipped++
			observability.IncIngestOutcome("replayed")
			return sum, nil
		}
	}

	for _, entry := range payload.MetaData.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				log.Printf("ingest: skipping unhandled change field %q", change.Field)
				sum.Skipped++
				continue
			}
			in.applyChange(ctx, change.Value, &sum)
		}
	}

	if payload.ID != "" {
		if err := in.payloads.MarkProcessed(ctx, payload.ID, time.Now().UTC()); err != nil {
			log.Printf("ingest: mark processed %s: %v", payload.ID, err)
		}
	}

	if in.audit != nil {
		in.audit.Emit(ctx, telemetry.AuditEnvelope{
			Source:     "webhook",
			PayloadID:  payload.ID,
			Users:      sum.UsersUpserted,
			Messages:   sum.MessagesCreated,
			Statuses:   sum.StatusesApplied,
			Skipped:    sum.Skipped,
			Errored:    sum.Errored,
			DurationMS: time.Since(started).Milliseconds(),
		})
	}
	return sum, nil
}

func (in *Ingestor) applyChange(ctx context.Context, value ChangeValue, sum *Summary) {
	names := make(map[string]string, len(value.Contacts))
	for _, contact := range value.Contacts {
		if contact.WaID == "" {
			continue
		}
		names[contact.WaID] = contact.Profile.Name
		if _, err := in.users.Upsert(ctx, contact.WaID, contact.Profile.Name, time.Now().UTC()); err != nil {
			log.Printf("ingest: upsert contact %s: %v", contact.WaID, err)
			sum.Errored++
			observability.IncIngestOutcome("error")
			continue
		}
		sum.UsersUpserted++
	}

	business := value.Metadata.DisplayPhoneNumber
	if business == "" {
		business = in.cfg.BusinessNumber
	}

	for _, inbound := range value.Messages {
		if inbound.ID == "" || inbound.From == "" {
			sum.Errored++
			observability.IncIngestOutcome("error")
			continue
		}
		senderName, known := names[inbound.From]
		if !known {
			user, err := in.users.GetByWaID(ctx, inbound.From)
			if errors.Is(err, repositories.ErrUserNotFound) {
				log.Printf("ingest: message %s from unknown sender %s, skipping", inbound.ID, inbound.From)
				sum.Skipped++
				observability.IncIngestOutcome("unknown_sender")
				continue
			}
			if err != nil {
				sum.Errored++
				observability.IncIngestOutcome("error")
				continue
			}
			senderName = user.Name
		}
		if err := in.applyMessage(ctx, inbound, senderName, business); err != nil {
			if errors.Is(err, repositories.ErrDuplicateMessage) {
				sum.Skipped++
				observability.IncIngestOutcome("duplicate")
				continue
			}
			log.Printf("ingest: message %s: %v", inbound.ID, err)
			sum.Errored++
			observability.IncIngestOutcome("error")
			continue
		}
		sum.MessagesCreated++
		observability.IncIngestOutcome("created")
	}

	for _, status := range value.Statuses {
		if err := in.applyStatus(ctx, status); err != nil {
			if errors.Is(err, repositories.ErrMessageNotFound) {
				// Status callbacks can outrun the message they reference.
				log.Printf("ingest: status for unknown message %s", status.MessageID())
				sum.Skipped++
				observability.IncIngestOutcome("orphan_status")
				continue
			}
			log.Printf("ingest: status %s: %v", status.MessageID(), err)
			sum.Errored++
			observability.IncIngestOutcome("error")
			continue
		}
		sum.StatusesApplied++
		observability.IncIngestOutcome("status_applied")
	}
}

func (in *Ingestor) applyMessage(ctx context.Context, inbound InboundMessage, senderName, business string) error {
	at := parseUnixTimestamp(inbound.Timestamp)
	conversationID := conversation.CanonicalID(inbound.From, business)

	one, two, _ := conversation.Participants(conversationID)
	if _, err := in.convs.GetOrCreate(ctx, conversationID, one, two, inbound.From, at); err != nil {
		return err
	}

	msg := models.Message{
		MessageID:      inbound.ID,
		ConversationID: conversationID,
		WaID:           inbound.From,
		FromNumber:     inbound.From,
		ToNumber:       business,
		SenderName:     senderName,
		MessageType:    messageType(inbound),
		Status:         models.StatusDelivered,
		FromAPI:        true,
		CreatedAt:      at,
	}
	if inbound.Text != nil {
		msg.Body = inbound.Text.Body
	}
	if inbound.Context != nil && inbound.Context.ID != "" {
		msg.ReplyTo.String = inbound.Context.ID
		msg.ReplyTo.Valid = true
	}
	msg.DeliveredAt.Time = at
	msg.DeliveredAt.Valid = true

	_, err := in.messages.Create(ctx, msg)
	return err
}

func (in *Ingestor) applyStatus(ctx context.Context, status InboundStatus) error {
	id := status.MessageID()
	if id == "" || !models.ValidStatus(status.Status) {
		return errors.New("malformed status callback")
	}
	return in.messages.AppendStatus(ctx, id, status.Status, parseUnixTimestamp(status.Timestamp))
}

func messageType(inbound InboundMessage) string {
	if inbound.Type == "" {
		return models.TypeText
	}
	return inbound.Type
}

func parseUnixTimestamp(value string) time.Time {
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil || sec <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}
