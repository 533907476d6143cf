package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Event struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Title       string          `gorm:"not null" json:"title"`
	Location    string          `gorm:"not null;unique" json:"location"`
	Description string          `gorm:"not null" json:"description"`
	Tickets     int             `gorm:"not null;check:tickets >= 0" json:"tickets"`
	Price       decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"price"`
	Image       string          `json:"image"`
	Date        time.Time       `gorm:"not null" json:"date"`
	Time        time.Time       `gorm:"not null" json:"time"`
	HostID      *uuid.UUID      `gorm:"type:uuid;index" json:"host_id,omitempty"`
	Host        *User           `gorm:"foreignKey:HostID" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"-"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}
