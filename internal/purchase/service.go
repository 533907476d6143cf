// Package purchase reserves tickets, mints them on the ledger and settles
// the outcome in the store.
package purchase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ripplegate/ripplegate/internal/ledger"
	"github.com/ripplegate/ripplegate/internal/lock"
	"github.com/ripplegate/ripplegate/internal/metrics"
	"github.com/ripplegate/ripplegate/internal/models"
	"github.com/ripplegate/ripplegate/internal/store"
)

const (
	DefaultLedgerTimeout = 60 * time.Second

	storeTimeout  = 5 * time.Second
	notifyTimeout = 5 * time.Second
)

type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (models.Event, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	GetTicket(ctx context.Context, id uuid.UUID) (models.Ticket, error)
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	ConfirmTicket(ctx context.Context, ticketID, eventID uuid.UUID, nftID, txHash string) error
	FailTicket(ctx context.Context, ticketID uuid.UUID, nftID, txHash string) error
}

type Ledger interface {
	MintTicketToken(ctx context.Context, req ledger.MintRequest) (ledger.MintResult, error)
	VerifyOwnership(ctx context.Context, tokenID, wallet string) bool
}

type Notifier interface {
	TicketSettled(ctx context.Context, activity models.Activity, userID uuid.UUID)
}

type Result struct {
	Ticket models.Ticket
	Mint   ledger.MintResult
}

type Service struct {
	store         Store
	ledger        Ledger
	locker        lock.Locker
	notifier      Notifier
	ledgerTimeout time.Duration
	logger        *slog.Logger
}

type Option func(*Service)

func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLedgerTimeout bounds a purchase's ledger calls up to submission.
// Submitted transactions are waited on by the gateway until they validate or
// expire. Zero disables the bound.
func WithLedgerTimeout(d time.Duration) Option {
	return func(s *Service) { s.ledgerTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(st Store, gateway Ledger, opts ...Option) *Service {
	s := &Service{
		store:         st,
		ledger:        gateway,
		locker:        lock.NewLocal(),
		ledgerTimeout: DefaultLedgerTimeout,
		logger:        slog.Default().With("module", "purchase", "layer", "service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Purchase sells one ticket of eventID to userID.
//
// Nothing is written when the event or user is missing or the event is sold
// out. Otherwise a pending ticket is stored before the ledger is contacted
// and ends confirmed or failed, unless the store fails or the mint outcome
// is still unknown when the ledger stops answering.
//
// ctx bounds only the wait for the event lock. Once the lock is held the
// purchase runs to a ledger outcome even if the caller goes away.
func (s *Service) Purchase(ctx context.Context, eventID, userID uuid.UUID) (Result, error) {
	event, user, err := s.checkPreconditions(ctx, eventID, userID)
	if err != nil {
		metrics.TrackPurchase(outcomeFor(err))
		return Result{}, err
	}

	res, err := s.settle(ctx, event, user)
	if status := res.Ticket.Status; status == models.TicketStatusConfirmed || status == models.TicketStatusFailed {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		s.notify(notifyCtx, res.Ticket, event, user)
	}
	return res, err
}

// settle holds the event lock from the capacity re-check until the ticket
// reaches its final state.
func (s *Service) settle(ctx context.Context, event models.Event, user models.User) (Result, error) {
	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, event.ID.String())
	if err != nil {
		metrics.TrackPurchase(metrics.OutcomeError)
		return Result{}, err
	}
	defer unlock()
	metrics.TrackLockWait(time.Since(waitStart))

	ctx = context.WithoutCancel(ctx)

	// Capacity may have been taken while waiting for the lock.
	event, err = s.store.GetEvent(ctx, event.ID)
	if err != nil {
		err = lookupErr(err, ErrEventNotFound)
		metrics.TrackPurchase(outcomeFor(err))
		return Result{}, err
	}
	if event.Tickets <= 0 {
		metrics.TrackPurchase(metrics.OutcomeRejected)
		return Result{}, ErrSoldOut
	}

	ticket := models.Ticket{
		EventID: event.ID,
		UserID:  user.ID,
		Price:   event.Price,
		Status:  models.TicketStatusPending,
	}
	if err := s.store.CreateTicket(ctx, &ticket); err != nil {
		metrics.TrackPurchase(metrics.OutcomeError)
		return Result{}, err
	}

	mint, mintErr := s.mint(ctx, event, user, ticket)
	if mintErr != nil {
		return s.fail(ctx, event, user, ticket, mint, mintErr)
	}

	if err := s.store.ConfirmTicket(ctx, ticket.ID, event.ID, mint.TokenID, mint.TxHash); err != nil {
		s.logger.ErrorContext(ctx, "confirm ticket failed",
			"operation", "purchase",
			"outcome", "failure",
			"ticket_id", ticket.ID,
			"nft_id", mint.TokenID,
			"error", err.Error(),
		)
		s.failDetached(ticket.ID, mint)
		metrics.TrackPurchase(metrics.OutcomeError)
		return Result{Mint: mint}, &PersistenceError{Op: "confirm", TicketID: ticket.ID.String(), Err: err}
	}

	ticket.Status = models.TicketStatusConfirmed
	ticket.NFTID = optional(mint.TokenID)
	ticket.TransactionHash = optional(mint.TxHash)
	event.Tickets--
	ticket.Event = &event
	ticket.User = &user

	s.logger.InfoContext(ctx, "ticket purchased",
		"operation", "purchase",
		"outcome", "success",
		"ticket_id", ticket.ID,
		"event_id", event.ID,
		"user_id", user.ID,
		"nft_id", mint.TokenID,
	)
	metrics.TrackPurchase(metrics.OutcomeConfirmed)

	return Result{Ticket: ticket, Mint: mint}, nil
}

func (s *Service) checkPreconditions(ctx context.Context, eventID, userID uuid.UUID) (models.Event, models.User, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, models.User{}, lookupErr(err, ErrEventNotFound)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return models.Event{}, models.User{}, lookupErr(err, ErrUserNotFound)
	}
	if event.Tickets <= 0 {
		return models.Event{}, models.User{}, ErrSoldOut
	}
	return event, user, nil
}

func (s *Service) mint(ctx context.Context, event models.Event, user models.User, ticket models.Ticket) (ledger.MintResult, error) {
	ctx, cancel := s.ledgerContext(ctx)
	defer cancel()
	return s.ledger.MintTicketToken(ctx, ledger.MintRequest{
		EventTitle:    event.Title,
		EventDate:     event.Date.Format(time.DateOnly),
		EventLocation: event.Location,
		TicketID:      ticket.ID.String(),
		Destination:   user.WalletAddress,
	})
}

func (s *Service) fail(ctx context.Context, event models.Event, user models.User, ticket models.Ticket, mint ledger.MintResult, mintErr error) (Result, error) {
	kind, outcome := MintFailed, metrics.OutcomeMintFailed
	nftID, txHash := "", ""
	switch {
	case errors.Is(mintErr, ledger.ErrTransferFailed):
		kind, outcome = TransferFailed, metrics.OutcomeTransferFailed
		nftID, txHash = mint.TokenID, mint.TxHash
	case errors.Is(mintErr, ledger.ErrTxUnsettled):
		return s.leavePending(ctx, event, user, ticket, mint, mintErr)
	}

	s.logger.WarnContext(ctx, "ticket purchase failed on ledger",
		"operation", "purchase",
		"outcome", string(kind),
		"ticket_id", ticket.ID,
		"event_id", event.ID,
		"error", mintErr.Error(),
	)

	failCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.FailTicket(failCtx, ticket.ID, nftID, txHash); err != nil {
		metrics.TrackPurchase(metrics.OutcomeError)
		return Result{Mint: mint}, &PersistenceError{Op: "fail", TicketID: ticket.ID.String(), Err: err}
	}

	ticket.Status = models.TicketStatusFailed
	ticket.NFTID = optional(nftID)
	ticket.TransactionHash = optional(txHash)
	ticket.Event = &event
	ticket.User = &user

	metrics.TrackPurchase(outcome)

	return Result{Ticket: ticket, Mint: mint}, &ExternalError{
		Kind:     kind,
		TicketID: ticket.ID.String(),
		Reason:   mintErr.Error(),
		Err:      mintErr,
	}
}

// leavePending keeps the ticket pending when the mint may still be in the
// ledger, so it shows up in the pending list for reconciliation.
func (s *Service) leavePending(ctx context.Context, event models.Event, user models.User, ticket models.Ticket, mint ledger.MintResult, mintErr error) (Result, error) {
	hash := ""
	var unsettled *ledger.UnsettledError
	if errors.As(mintErr, &unsettled) {
		hash = unsettled.Hash
	}
	s.logger.ErrorContext(ctx, "ticket mint outcome unknown, left pending",
		"operation", "purchase",
		"outcome", string(MintUnsettled),
		"ticket_id", ticket.ID,
		"event_id", event.ID,
		"hash", hash,
		"error", mintErr.Error(),
	)
	metrics.TrackPurchase(metrics.OutcomeUnsettled)

	ticket.Event = &event
	ticket.User = &user
	return Result{Ticket: ticket, Mint: mint}, &ExternalError{
		Kind:     MintUnsettled,
		TicketID: ticket.ID.String(),
		Reason:   mintErr.Error(),
		Err:      mintErr,
	}
}

func (s *Service) failDetached(ticketID uuid.UUID, mint ledger.MintResult) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.store.FailTicket(ctx, ticketID, mint.TokenID, mint.TxHash); err != nil {
		s.logger.Error("ticket left pending",
			"operation", "purchase",
			"outcome", "failure",
			"ticket_id", ticketID,
			"error", err.Error(),
		)
	}
}

func (s *Service) notify(ctx context.Context, ticket models.Ticket, event models.Event, user models.User) {
	if s.notifier == nil {
		return
	}
	s.notifier.TicketSettled(ctx, models.Activity{
		TicketID:   ticket.ID,
		UserEmail:  user.Email,
		EventTitle: event.Title,
		Price:      ticket.Price,
		Status:     ticket.Status,
		NFTID:      ticket.NFTID,
		CreatedAt:  ticket.CreatedAt,
	}, user.ID)
}

func lookupErr(err error, notFound error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return err
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrSoldOut):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
