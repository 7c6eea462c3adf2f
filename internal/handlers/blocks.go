package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type blockRequest struct {
	WaID   string `json:"wa_id" binding:"required"`
	Reason string `json:"reason"`
}

// BlockUser handles POST /api/blocks.
func (h *Handler) BlockUser(c *gin.Context) {
	waID, _ := identity(c)

	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.WaID == waID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block yourself"})
		return
	}

	if _, err := h.users.GetByWaID(c.Request.Context(), req.WaID); err != nil {
		respondError(c, err)
		return
	}
	if err := h.blocks.Block(c.Request.Context(), waID, req.WaID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"blocked": req.WaID})
}

// UnblockUser handles DELETE /api/blocks/:waID.
func (h *Handler) UnblockUser(c *gin.Context) {
	waID, _ := identity(c)

	if err := h.blocks.Unblock(c.Request.Context(), waID, c.Param("waID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unblocked": c.Param("waID")})
}

// ListBlocked handles GET /api/blocks.
func (h *Handler) ListBlocked(c *gin.Context) {
	waID, _ := identity(c)

	blocked, err := h.blocks.ListBlocked(c.Request.Context(), waID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocked})
}
