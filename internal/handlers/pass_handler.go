package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/ripplegate/ripplegate/internal/helpers"
	"github.com/ripplegate/ripplegate/internal/models"
	"github.com/ripplegate/ripplegate/internal/store"
)

func nftIDOf(t models.Ticket) string {
	if t.NFTID == nil {
		return ""
	}
	return *t.NFTID
}

func (h *Handler) GenerateTicketQR(c *gin.Context) {
	userID, ok := helpers.CurrentUserID(c)
	if !ok {
		return
	}
	ticketID, ok := helpers.ParseUUIDParam(c, "ticketId", "ticket ID")
	if !ok {
		return
	}

	ticket, err := h.store.GetTicket(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve ticket.")
		return
	}

	if ticket.UserID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to generate QR code for this ticket.")
		return
	}
	if ticket.Status != models.TicketStatusConfirmed {
		helpers.RespondWithError(c, http.StatusConflict, "Ticket is not confirmed.")
		return
	}
	if ticket.CheckedInAt != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "Ticket already used.")
		return
	}

	qrData := h.passes.Encode(ticket.ID, ticket.EventID, ticket.UserID, nftIDOf(ticket))
	qrImage, err := qrcode.Encode(qrData, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

func (h *Handler) ValidateTicket(c *gin.Context) {
	userID, ok := helpers.CurrentUserID(c)
	if !ok {
		return
	}

	var validationRequest struct {
		QRData string `json:"qr_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&validationRequest); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	pass, err := h.passes.Parse(validationRequest.QRData)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid QR code format.")
		return
	}

	ticket, err := h.store.GetTicket(c.Request.Context(), pass.TicketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve ticket.")
		return
	}

	if pass.EventID != ticket.EventID || !h.passes.Valid(pass, ticket.UserID, nftIDOf(ticket)) {
		helpers.RespondWithError(c, http.StatusForbidden, "Invalid QR code signature.")
		return
	}
	if ticket.Event == nil || ticket.Event.HostID == nil || *ticket.Event.HostID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to validate this ticket.")
		return
	}

	if err := h.store.CheckInTicket(c.Request.Context(), ticket.ID, h.now()); err != nil {
		if errors.Is(err, store.ErrNotCheckable) {
			helpers.RespondWithError(c, http.StatusForbidden, "Ticket already used or not confirmed.")
			return
		}
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to validate ticket.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket validated successfully",
		"ticket": gin.H{
			"id":          ticket.ID,
			"event_title": ticket.Event.Title,
			"nft_id":      ticket.NFTID,
		},
	})
}
