package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wachat-service/internal/conversation"
	"wachat-service/internal/delivery"
	"wachat-service/internal/repositories"
)

// ListConversations handles GET /api/conversations: per-conversation
// summaries for the viewer, enriched with the peer's profile and the
// viewer's archive/mute state, most recent first.
func (h *Handler) ListConversations(c *gin.Context) {
	waID, _ := identity(c)
	ctx := c.Request.Context()

	summaries, err := h.messages.ListConversationSummaries(ctx, waID)
	if err != nil {
		respondError(c, err)
		return
	}

	archived, err := h.convs.ListArchived(ctx, waID)
	if err != nil {
		respondError(c, err)
		return
	}
	archivedAt := make(map[string]time.Time, len(archived))
	for _, entry := range archived {
		archivedAt[entry.ConversationID] = entry.ArchivedAt
	}

	now := time.Now().UTC()
	for i := range summaries {
		summary := &summaries[i]

		one, two, ok := conversation.Participants(summary.ConversationID)
		if ok {
			peer := one
			if peer == waID {
				peer = two
			}
			if user, err := h.users.GetByWaID(ctx, peer); err == nil {
				summary.User = &user
			}
		}

		if at, ok := archivedAt[summary.ConversationID]; ok {
			summary.IsArchived = true
			at := at
			summary.ArchivedAt = &at
		}
		if muted, err := h.convs.IsMuted(ctx, summary.ConversationID, waID, now); err == nil {
			summary.IsMuted = muted
		}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// ListArchivedConversations handles GET /api/conversations/archived. Each
// entry carries the latest message still visible to the viewer and the
// unread count.
func (h *Handler) ListArchivedConversations(c *gin.Context) {
	waID, _ := identity(c)
	ctx := c.Request.Context()

	archived, err := h.convs.ListArchived(ctx, waID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(archived))
	for _, entry := range archived {
		item := gin.H{
			"conversation_id": entry.ConversationID,
			"archived_at":     entry.ArchivedAt,
			"last_activity":   entry.LastActivity,
		}
		if last, err := h.messages.LatestVisibleMessage(ctx, entry.ConversationID, waID); err == nil {
			item["last_message"] = last.Body
			item["last_message_type"] = last.MessageType
			item["last_message_time"] = last.CreatedAt
		}
		if unread, err := h.messages.UnreadCount(ctx, entry.ConversationID, waID); err == nil {
			item["unread_count"] = unread
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

// ensureParticipantConversation resolves the conversation for an
// archive/mute toggle, creating the row lazily when the pair has no
// history yet. Participants are derived from the canonical id; the caller
// must be one of them.
func (h *Handler) ensureParticipantConversation(ctx context.Context, conversationID, waID string) error {
	conv, err := h.convs.Get(ctx, conversationID)
	if err == nil {
		if !conv.HasParticipant(waID) {
			return delivery.ErrForbidden
		}
		return nil
	}
	if !errors.Is(err, repositories.ErrConversationNotFound) {
		return err
	}

	one, two, ok := conversation.Participants(conversationID)
	if !ok {
		return repositories.ErrConversationNotFound
	}
	if one != waID && two != waID {
		return delivery.ErrForbidden
	}
	_, err = h.convs.GetOrCreate(ctx, conversationID, one, two, waID, time.Now().UTC())
	return err
}

type archiveRequest struct {
	Archived *bool `json:"archived" binding:"required"`
}

// SetArchived handles POST /api/conversations/:id/archive.
func (h *Handler) SetArchived(c *gin.Context) {
	waID, _ := identity(c)
	conversationID := c.Param("id")

	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ensureParticipantConversation(c.Request.Context(), conversationID, waID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.convs.SetArchived(c.Request.Context(), conversationID, waID, *req.Archived, time.Now().UTC()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": *req.Archived})
}

type muteRequest struct {
	Muted *bool      `json:"muted" binding:"required"`
	Until *time.Time `json:"until"`
}

// SetMuted handles POST /api/conversations/:id/mute.
func (h *Handler) SetMuted(c *gin.Context) {
	waID, _ := identity(c)
	conversationID := c.Param("id")

	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ensureParticipantConversation(c.Request.Context(), conversationID, waID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.convs.SetMuted(c.Request.Context(), conversationID, waID, *req.Muted, req.Until, time.Now().UTC()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": *req.Muted})
}

// MarkConversationRead handles POST /api/conversations/:id/read.
func (h *Handler) MarkConversationRead(c *gin.Context) {
	waID, _ := identity(c)

	count, err := h.coord.MarkConversationRead(c.Request.Context(), c.Param("id"), waID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_read": count})
}

// DeleteConversation handles DELETE /api/conversations/:id.
func (h *Handler) DeleteConversation(c *gin.Context) {
	waID, _ := identity(c)

	if err := h.coord.DeleteConversation(c.Request.Context(), c.Param("id"), waID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ClearConversation handles POST /api/conversations/:id/clear.
func (h *Handler) ClearConversation(c *gin.Context) {
	waID, _ := identity(c)

	if err := h.coord.ClearConversation(c.Request.Context(), c.Param("id"), waID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
