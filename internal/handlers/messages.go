package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wachat-service/internal/delivery"
)

type sendMessageRequest struct {
	To          string `json:"to" binding:"required"`
	MessageType string `json:"message_type"`
	Body        string `json:"body"`
	MediaURL    string `json:"media_url"`
	Caption     string `json:"caption"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ReplyTo     string `json:"reply_to"`
}

// SendMessage handles POST /api/messages.
func (h *Handler) SendMessage(c *gin.Context) {
	waID, name := identity(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Body == "" && req.MediaURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message needs a body or media"})
		return
	}

	msg, err := h.coord.Send(c.Request.Context(), waID, name, delivery.SendRequest{
		To:          req.To,
		MessageType: req.MessageType,
		Body:        req.Body,
		MediaURL:    req.MediaURL,
		Caption:     req.Caption,
		Filename:    req.Filename,
		Size:        req.Size,
		ReplyTo:     req.ReplyTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListMessages handles GET /api/conversations/:id/messages. Opening a
// conversation doubles as the read receipt: unread messages addressed to the
// viewer are advanced to read before the page is returned.
func (h *Handler) ListMessages(c *gin.Context) {
	waID, _ := identity(c)
	conversationID := c.Param("id")

	conv, err := h.convs.Get(c.Request.Context(), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !conv.HasParticipant(waID) {
		respondError(c, delivery.ErrForbidden)
		return
	}

	if _, err := h.coord.MarkConversationRead(c.Request.Context(), conversationID, waID); err != nil {
		respondError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	msgs, total, err := h.messages.ListByConversation(c.Request.Context(), conversationID, waID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"total":    total,
		"page":     page,
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateMessageStatus handles PUT /api/messages/:id/status.
func (h *Handler) UpdateMessageStatus(c *gin.Context) {
	waID, _ := identity(c)

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.coord.UpdateStatus(c.Request.Context(), waID, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage handles DELETE /api/messages/:id. The for_everyone query
// flag selects between per-viewer and irreversible deletion.
func (h *Handler) DeleteMessage(c *gin.Context) {
	waID, _ := identity(c)
	forEveryone := c.Query("for_everyone") == "true"

	if err := h.coord.DeleteMessage(c.Request.Context(), waID, c.Param("id"), forEveryone); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "for_everyone": forEveryone})
}

type forwardRequest struct {
	To []string `json:"to" binding:"required,min=1"`
}

// ForwardMessage handles POST /api/messages/:id/forward.
func (h *Handler) ForwardMessage(c *gin.Context) {
	waID, name := identity(c)

	var req forwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.coord.Forward(c.Request.Context(), waID, name, c.Param("id"), req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forwarded": count, "requested": len(req.To)})
}

// SearchMessages handles GET /api/messages/search.
func (h *Handler) SearchMessages(c *gin.Context) {
	waID, _ := identity(c)

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	msgs, total, err := h.messages.Search(c.Request.Context(), waID, query, c.Query("conversation_id"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"total":    total,
		"page":     page,
	})
}

// MessageInfo handles GET /api/messages/:id/info, exposing delivery metadata
// to the message's participants only.
func (h *Handler) MessageInfo(c *gin.Context) {
	waID, _ := identity(c)

	msg, err := h.messages.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !msg.IsParticipant(waID) {
		respondError(c, delivery.ErrForbidden)
		return
	}

	info := gin.H{
		"message_id": msg.MessageID,
		"status":     msg.Status,
		"sent_at":    msg.CreatedAt,
	}
	if msg.DeliveredAt.Valid {
		info["delivered_at"] = msg.DeliveredAt.Time
	}
	if msg.ReadAt.Valid {
		info["read_at"] = msg.ReadAt.Time
	}
	if msg.DeletedForEveryone {
		info["deleted_for_everyone"] = true
	}
	c.JSON(http.StatusOK, info)
}

// ExportConversation handles GET /api/conversations/:id/export and streams a
// plain-text transcript.
func (h *Handler) ExportConversation(c *gin.Context) {
	waID, _ := identity(c)

	transcript, err := h.coord.ExportConversation(c.Request.Context(), c.Param("id"), waID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+c.Param("id")+`.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(transcript))
}
