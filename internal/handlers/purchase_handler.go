package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ripplegate/ripplegate/internal/helpers"
	"github.com/ripplegate/ripplegate/internal/purchase"
)

// BuyRequest also accepts camelCase keys sent by older clients.
type BuyRequest struct {
	EventID      string `json:"event_id"`
	UserID       string `json:"user_id"`
	EventIDCamel string `json:"eventId"`
	UserIDCamel  string `json:"userId"`
}

func (r *BuyRequest) normalize() {
	if r.EventID == "" {
		r.EventID = r.EventIDCamel
	}
	if r.UserID == "" {
		r.UserID = r.UserIDCamel
	}
}

func (h *Handler) BuyTicket(c *gin.Context) {
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}
	req.normalize()
	if req.EventID == "" || req.UserID == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing event_id or user_id.")
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event_id.")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid user_id.")
		return
	}

	res, err := h.tickets.Purchase(c.Request.Context(), eventID, userID)
	if err != nil {
		h.respondPurchaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Ticket purchased successfully",
		"ticket":  toTicketResponse(res.Ticket),
		"nft_details": gin.H{
			"success":          true,
			"nft_id":           res.Mint.TokenID,
			"transaction_hash": res.Mint.TxHash,
			"metadata":         res.Mint.Metadata,
		},
	})
}

func (h *Handler) respondPurchaseError(c *gin.Context, err error) {
	var external *purchase.ExternalError
	var persistence *purchase.PersistenceError

	switch {
	case errors.Is(err, purchase.ErrEventNotFound):
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
	case errors.Is(err, purchase.ErrUserNotFound):
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, purchase.ErrSoldOut):
		helpers.RespondWithError(c, http.StatusBadRequest, "No tickets available.")
	case errors.As(err, &external) && external.Kind == purchase.MintUnsettled:
		helpers.RespondWithDetails(c, http.StatusGatewayTimeout, "NFT mint is still settling. Please check your tickets before retrying.", external.Reason)
	case errors.As(err, &external):
		message := "Failed to mint NFT ticket."
		if external.Kind == purchase.TransferFailed {
			message = "NFT minted but transfer failed."
		}
		helpers.RespondWithDetails(c, http.StatusBadGateway, message, external.Reason)
	case errors.As(err, &persistence):
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Ticket state could not be saved. Please check your tickets before retrying.")
	default:
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to purchase ticket.")
	}
}
