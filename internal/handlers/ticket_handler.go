package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ripplegate/ripplegate/internal/helpers"
	"github.com/ripplegate/ripplegate/internal/notify"
	"github.com/ripplegate/ripplegate/internal/purchase"
)

const activityLimit = 20

func (h *Handler) ListUserTickets(c *gin.Context) {
	userID, ok := helpers.ParseUUIDParam(c, "userId", "user ID")
	if !ok {
		return
	}

	tickets, err := h.store.ListUserTickets(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve tickets.")
		return
	}

	c.JSON(http.StatusOK, toTicketResponses(tickets))
}

func (h *Handler) VerifyTicket(c *gin.Context) {
	ticketID, ok := helpers.ParseUUIDParam(c, "ticketId", "ticket ID")
	if !ok {
		return
	}

	v, err := h.tickets.Verify(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, purchase.ErrTicketNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to verify ticket.")
		return
	}

	if v.Reason != "" {
		c.JSON(http.StatusOK, gin.H{"verified": false, "reason": v.Reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"verified": v.Verified,
		"ticket":   toTicketResponse(v.Ticket),
		"nft_id":   v.Ticket.NFTID,
	})
}

func (h *Handler) ListWalletNFTs(c *gin.Context) {
	wallet := c.Param("walletAddress")

	tokens, err := h.tokens.ListOwnedTokens(c.Request.Context(), wallet)
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "list wallet tokens failed",
			"operation", "account_nfts",
			"outcome", "failure",
			"wallet", wallet,
			"error", err.Error(),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "nfts": tokens})
}

func (h *Handler) RecentActivity(c *gin.Context) {
	rows, err := h.store.RecentActivity(c.Request.Context(), activityLimit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to retrieve activity."})
		return
	}

	activity := make([]notify.ActivityMessage, 0, len(rows))
	for _, row := range rows {
		activity = append(activity, notify.NewActivityMessage(row))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activity": activity})
}

// ListPendingTickets shows the caller's events' tickets stuck in pending for
// longer than older_than (default 5m). They need manual reconciliation
// against the ledger.
func (h *Handler) ListPendingTickets(c *gin.Context) {
	userID, ok := helpers.CurrentUserID(c)
	if !ok {
		return
	}

	olderThan := 5 * time.Minute
	if raw := c.Query("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid older_than duration.")
			return
		}
		olderThan = d
	}

	tickets, err := h.store.ListPendingTickets(c.Request.Context(), h.now().Add(-olderThan))
	if err != nil {
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve tickets.")
		return
	}

	hosted := tickets[:0]
	for _, t := range tickets {
		if t.Event != nil && t.Event.HostID != nil && *t.Event.HostID == userID {
			hosted = append(hosted, t)
		}
	}

	c.JSON(http.StatusOK, toTicketResponses(hosted))
}
