package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ripplegate/ripplegate/internal/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("record already exists")
	ErrSoldOut          = errors.New("no tickets available")
	ErrTicketNotPending = errors.New("ticket is not pending")
	ErrNotCheckable     = errors.New("ticket is not confirmed or already checked in")
)

// Store is the durable record of events, users and tickets.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Migrate(ctx context.Context) error {
	slog.Default().InfoContext(ctx, "schema migration started",
		"module", "store",
		"operation", "migrate",
		"outcome", "start",
	)
	if err := s.db.WithContext(ctx).AutoMigrate(&models.User{}, &models.Event{}, &models.Ticket{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	return translate(s.db.WithContext(ctx).Create(event).Error)
}

func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.WithContext(ctx).Order("date ASC, created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	return event, translate(err)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	return user, translate(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return user, translate(err)
}

// CreateTicket persists a new ticket row; the caller sets status and price.
func (s *Store) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	return translate(s.db.WithContext(ctx).Create(ticket).Error)
}

func (s *Store) GetTicket(ctx context.Context, id uuid.UUID) (models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Preload("Event").Preload("User").Where("id = ?", id).First(&ticket).Error
	return ticket, translate(err)
}

// ListUserTickets returns the user's tickets, newest first.
func (s *Store) ListUserTickets(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Preload("Event").
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListPendingTickets returns tickets still pending that were created before
// the cutoff. They mark purchases interrupted between reservation and
// reconciliation.
func (s *Store) ListPendingTickets(ctx context.Context, createdBefore time.Time) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Preload("Event").
		Preload("User").
		Where("status = ? AND created_at < ?", models.TicketStatusPending, createdBefore).
		Order("created_at ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) RecentActivity(ctx context.Context, limit int) ([]models.Activity, error) {
	var rows []models.Activity
	err := s.db.WithContext(ctx).
		Table("tickets").
		Select("tickets.id AS ticket_id, users.email AS user_email, events.title AS event_title, " +
			"tickets.price AS price, tickets.status AS status, tickets.nft_id AS nft_id, tickets.created_at AS created_at").
		Joins("JOIN users ON users.id = tickets.user_id").
		Joins("JOIN events ON events.id = tickets.event_id").
		Order("tickets.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountConfirmed returns how many confirmed tickets exist for an event.
func (s *Store) CountConfirmed(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("event_id = ? AND status = ?", eventID, models.TicketStatusConfirmed).
		Count(&n).Error
	return n, err
}

// ConfirmTicket marks a pending ticket confirmed and takes one unit of event
// capacity in the same transaction. Nothing is written when the ticket is no
// longer pending or the event has no capacity left.
func (s *Store) ConfirmTicket(ctx context.Context, ticketID, eventID uuid.UUID, nftID, txHash string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Ticket{}).
			Where("id = ? AND status = ?", ticketID, models.TicketStatusPending).
			Updates(map[string]any{
				"status":           models.TicketStatusConfirmed,
				"nft_id":           nullable(nftID),
				"transaction_hash": nullable(txHash),
				"updated_at":       time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTicketNotPending
		}

		res = tx.Model(&models.Event{}).
			Where("id = ? AND tickets > 0", eventID).
			Update("tickets", gorm.Expr("tickets - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSoldOut
		}
		return nil
	})
}

// FailTicket moves a pending ticket to failed. nftID and txHash may be empty;
// they are kept when a token was minted but never reached the buyer.
func (s *Store) FailTicket(ctx context.Context, ticketID uuid.UUID, nftID, txHash string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ?", ticketID, models.TicketStatusPending).
		Updates(map[string]any{
			"status":           models.TicketStatusFailed,
			"nft_id":           nullable(nftID),
			"transaction_hash": nullable(txHash),
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTicketNotPending
	}
	return nil
}

// CheckInTicket stamps a confirmed ticket as used at the door. A ticket can
// be checked in once.
func (s *Store) CheckInTicket(ctx context.Context, ticketID uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND checked_in_at IS NULL", ticketID, models.TicketStatusConfirmed).
		Updates(map[string]any{
			"checked_in_at": at,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotCheckable
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
