package purchase

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrSoldOut        = errors.New("no tickets available")
)

type ExternalKind string

const (
	MintFailed     ExternalKind = "mint_failed"
	TransferFailed ExternalKind = "transfer_failed"
	// MintUnsettled leaves the ticket pending: the mint was submitted but
	// neither validated nor expired while the gateway waited.
	MintUnsettled ExternalKind = "mint_unsettled"
)

// ExternalError is a ledger failure after the ticket was reserved. No
// capacity was consumed and the ticket has been moved to failed, except for
// MintUnsettled.
type ExternalError struct {
	Kind     ExternalKind
	TicketID string
	Reason   string
	Err      error
}

func (e *ExternalError) Error() string {
	switch e.Kind {
	case TransferFailed:
		return "NFT minted but transfer failed: " + e.Reason
	case MintUnsettled:
		return "NFT mint outcome unknown: " + e.Reason
	}
	return "Failed to mint NFT ticket: " + e.Reason
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// PersistenceError means the store failed after the ticket row existed, so
// the outcome of the purchase is unknown to the caller.
type PersistenceError struct {
	Op       string
	TicketID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s ticket %s: %v", e.Op, e.TicketID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
