package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusConfirmed TicketStatus = "confirmed"
	TicketStatusFailed    TicketStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusConfirmed || s == TicketStatusFailed
}

// Ticket is one purchase attempt. Price is copied from the event when the
// ticket is reserved and is never re-read afterwards.
type Ticket struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	EventID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"event_id"`
	Event           *Event          `gorm:"foreignKey:EventID" json:"event,omitempty"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_tickets_user_created,priority:1" json:"user_id"`
	User            *User           `gorm:"foreignKey:UserID" json:"-"`
	Price           decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"price"`
	Status          TicketStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	NFTID           *string         `gorm:"column:nft_id;type:varchar(64)" json:"nft_id"`
	TransactionHash *string         `gorm:"type:varchar(64)" json:"transaction_hash"`
	CheckedInAt     *time.Time      `json:"checked_in_at,omitempty"`
	CreatedAt       time.Time       `gorm:"index:idx_tickets_user_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time       `json:"-"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	if ticket.Status == "" {
		ticket.Status = TicketStatusPending
	}
	return
}

// Activity is one row of the global recent-activity feed.
type Activity struct {
	TicketID   uuid.UUID       `gorm:"column:ticket_id"`
	UserEmail  string          `gorm:"column:user_email"`
	EventTitle string          `gorm:"column:event_title"`
	Price      decimal.Decimal `gorm:"column:price"`
	Status     TicketStatus    `gorm:"column:status"`
	NFTID      *string         `gorm:"column:nft_id"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
}
