package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wachat-service/internal/ingest"
)

// WebhookHandler accepts provider webhook payload envelopes. It is mounted
// outside the authenticated API group; the provider does not carry user
// tokens.
type WebhookHandler struct {
	ingestor *ingest.Ingestor
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(ingestor *ingest.Ingestor) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor}
}

// Ingest handles POST /webhook.
func (h *WebhookHandler) Ingest(c *gin.Context) {
	var payload ingest.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.PayloadType != "" && payload.PayloadType != "whatsapp_webhook" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported payload type"})
		return
	}

	sum, err := h.ingestor.ProcessPayload(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users_upserted":   sum.UsersUpserted,
		"messages_created": sum.MessagesCreated,
		"statuses_applied": sum.StatusesApplied,
		"skipped":          sum.Skipped,
		"errored":          sum.Errored,
	})
}
