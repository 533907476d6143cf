package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ripplegate/ripplegate/internal/helpers"
	"github.com/ripplegate/ripplegate/internal/ledger"
	"github.com/ripplegate/ripplegate/internal/models"
	"github.com/ripplegate/ripplegate/internal/purchase"
)

type Store interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (models.Event, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetTicket(ctx context.Context, id uuid.UUID) (models.Ticket, error)
	ListUserTickets(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error)
	ListPendingTickets(ctx context.Context, createdBefore time.Time) ([]models.Ticket, error)
	RecentActivity(ctx context.Context, limit int) ([]models.Activity, error)
	CheckInTicket(ctx context.Context, ticketID uuid.UUID, at time.Time) error
	Ping(ctx context.Context) error
}

type TokenLister interface {
	ListOwnedTokens(ctx context.Context, wallet string) ([]ledger.Token, error)
}

type Purchaser interface {
	Purchase(ctx context.Context, eventID, userID uuid.UUID) (purchase.Result, error)
	Verify(ctx context.Context, ticketID uuid.UUID) (purchase.Verification, error)
}

type AuthConfig struct {
	Secret       string
	TokenTTL     time.Duration
	SecureCookie bool
}

type Handler struct {
	store   Store
	tickets Purchaser
	tokens  TokenLister
	passes  *helpers.PassSigner
	auth    AuthConfig
	logger  *slog.Logger
	now     func() time.Time
}

func New(store Store, tickets Purchaser, tokens TokenLister, auth AuthConfig) *Handler {
	if auth.TokenTTL == 0 {
		auth.TokenTTL = 24 * time.Hour
	}
	return &Handler{
		store:   store,
		tickets: tickets,
		tokens:  tokens,
		passes:  helpers.NewPassSigner(auth.Secret),
		auth:    auth,
		logger:  slog.Default().With("module", "handlers", "layer", "http"),
		now:     time.Now,
	}
}
