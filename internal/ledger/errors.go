package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrTransferFailed means the token was minted but is still held by the
	// platform account.
	ErrTransferFailed = errors.New("NFT minted but transfer failed")

	ErrTxExpired         = errors.New("transaction expired before validation")
	ErrTxUnsettled       = errors.New("transaction outcome unknown")
	ErrMetadataTooLarge  = errors.New("token metadata exceeds URI limit")
	ErrMissingTxHash     = errors.New("submit response carried no transaction hash")
	ErrPlatformNotConfig = errors.New("platform account and seed are required")
)

// EngineError is a transaction the ledger rejected, either on submit or
// after validation.
type EngineError struct {
	Result  string
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("Transaction failed: %s", e.Result)
}

// MintError wraps any failure of the mint transaction itself.
type MintError struct {
	Err error
}

func (e *MintError) Error() string {
	return e.Err.Error()
}

func (e *MintError) Unwrap() error {
	return e.Err
}

// UnsettledError is a submitted transaction that neither validated nor
// expired within the settle timeout. It may still be in the ledger.
type UnsettledError struct {
	Hash               string
	LastLedgerSequence uint32
}

func (e *UnsettledError) Error() string {
	return fmt.Sprintf("%s: hash %s, last ledger %d", ErrTxUnsettled, e.Hash, e.LastLedgerSequence)
}

func (e *UnsettledError) Unwrap() error {
	return ErrTxUnsettled
}
