package observability

import "time"

const serviceName = "wachat-service"

// EventEnvelope is the wire shape of everything this service publishes to
// the broker: websocket lifecycle events, ingestion audit summaries, and
// delivery-side domain events all travel inside it so downstream consumers
// can route on event_type without knowing each payload.
type EventEnvelope struct {
	Service   string      `json:"service"`
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	EmittedAt time.Time   `json:"emitted_at"`
	Payload   interface{} `json:"payload"`
}

// NewEnvelope stamps the service identity and emission time onto a payload.
func NewEnvelope(eventType, eventName string, payload interface{}) EventEnvelope {
	return EventEnvelope{
		Service:   serviceName,
		EventType: eventType,
		EventName: eventName,
		EmittedAt: time.Now().UTC(),
		Payload:   payload,
	}
}

// BuildHeaders carries the caller's correlation ids onto broker messages so
// a websocket event can be tied back to the HTTP handshake that opened the
// connection.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := make(map[string]string, 2)
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
