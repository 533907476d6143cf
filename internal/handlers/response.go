package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ripplegate/ripplegate/internal/models"
)

type EventResponse struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Tickets     int             `json:"tickets"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Date        string          `json:"date"`
	Time        string          `json:"time"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toEventResponse(e models.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Location:    e.Location,
		Description: e.Description,
		Tickets:     e.Tickets,
		Price:       e.Price,
		Image:       e.Image,
		Date:        e.Date.Format(time.DateOnly),
		Time:        e.Time.Format(time.TimeOnly),
		CreatedAt:   e.CreatedAt,
	}
}

type TicketResponse struct {
	ID              uuid.UUID       `json:"id"`
	EventID         uuid.UUID       `json:"event_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Price           decimal.Decimal `json:"price"`
	NFTID           *string         `json:"nft_id"`
	TransactionHash *string         `json:"transaction_hash"`
	Status          string          `json:"status"`
	CheckedInAt     *time.Time      `json:"checked_in_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Event           *EventResponse  `json:"event"`
	UserWallet      *string         `json:"user_wallet"`
}

func toTicketResponse(t models.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:              t.ID,
		EventID:         t.EventID,
		UserID:          t.UserID,
		Price:           t.Price,
		NFTID:           t.NFTID,
		TransactionHash: t.TransactionHash,
		Status:          string(t.Status),
		CheckedInAt:     t.CheckedInAt,
		CreatedAt:       t.CreatedAt,
	}
	if t.Event != nil {
		event := toEventResponse(*t.Event)
		resp.Event = &event
	}
	if t.User != nil {
		wallet := t.User.WalletAddress
		resp.UserWallet = &wallet
	}
	return resp
}

func toTicketResponses(tickets []models.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketResponse(t))
	}
	return out
}
