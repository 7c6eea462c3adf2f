package ingest

// WebhookPayload is the stored envelope around a WhatsApp Business webhook
// callback. The envelope id is what ingestion keys replay detection on.
type WebhookPayload struct {
	ID          string   `json:"_id"`
	PayloadType string   `json:"payload_type"`
	MetaData    MetaData `json:"metaData"`
}

type MetaData struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries either inbound messages with their contacts, or status
// callbacks, never both in practice.
type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         ValueMetadata    `json:"metadata"`
	Contacts         []Contact        `json:"contacts"`
	Messages         []InboundMessage `json:"messages"`
	Statuses         []InboundStatus  `json:"statuses"`
}

type ValueMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Context *struct {
		ID string `json:"id"`
	} `json:"context,omitempty"`
}

// InboundStatus references an earlier message by the provider id, sometimes
// only through meta_msg_id.
type InboundStatus struct {
	ID          string `json:"id"`
	MetaMsgID   string `json:"meta_msg_id"`
	RecipientID string `json:"recipient_id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
}

// MessageID resolves the message reference, preferring the direct id.
func (s InboundStatus) MessageID() string {
	if s.ID != "" {
		return s.ID
	}
	return s.MetaMsgID
}
