package purchase

import (
	"context"

	"github.com/google/uuid"

	"github.com/ripplegate/ripplegate/internal/models"
)

type Verification struct {
	Verified bool
	Reason   string
	Ticket   models.Ticket
}

// Verify checks that the token recorded on a ticket is held by the ticket
// owner's wallet.
func (s *Service) Verify(ctx context.Context, ticketID uuid.UUID) (Verification, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return Verification{}, lookupErr(err, ErrTicketNotFound)
	}
	if ticket.NFTID == nil || ticket.User == nil {
		return Verification{Reason: "NFT not minted or user not found", Ticket: ticket}, nil
	}

	ctx, cancel := s.ledgerContext(ctx)
	defer cancel()
	return Verification{
		Verified: s.ledger.VerifyOwnership(ctx, *ticket.NFTID, ticket.User.WalletAddress),
		Ticket:   ticket,
	}, nil
}

func (s *Service) ledgerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.ledgerTimeout > 0 {
		return context.WithTimeout(ctx, s.ledgerTimeout)
	}
	return context.WithCancel(ctx)
}
