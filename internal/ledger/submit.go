package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// submitAndWait signs and submits tx through the server and blocks until the
// transaction is validated or can no longer be included in a ledger.
func (g *Gateway) submitAndWait(ctx context.Context, tx transaction) (*txResult, error) {
	var current ledgerCurrentResult
	if err := g.client.Call(ctx, "ledger_current", struct{}{}, &current); err != nil {
		return nil, fmt.Errorf("read current ledger: %w", err)
	}
	tx.LastLedgerSequence = current.LedgerCurrentIndex + g.ledgerOffset

	params := submitParams{TxJSON: tx, FeeMultMax: 1000}
	if g.keyType != "" {
		params.Seed = g.seed
		params.KeyType = g.keyType
	} else {
		params.Secret = g.seed
	}

	var sub submitResult
	if err := g.client.Call(ctx, "submit", params, &sub); err != nil {
		return nil, err
	}
	if strings.HasPrefix(sub.EngineResult, "tem") {
		return nil, &EngineError{Result: sub.EngineResult, Message: sub.EngineResultMessage}
	}
	if sub.TxJSON.Hash == "" {
		return nil, ErrMissingTxHash
	}

	g.logger.DebugContext(ctx, "transaction submitted",
		"operation", "submit",
		"tx_type", tx.TransactionType,
		"hash", sub.TxJSON.Hash,
		"engine_result", sub.EngineResult,
		"last_ledger_sequence", tx.LastLedgerSequence,
	)

	// Once submitted the transaction may still validate up to
	// LastLedgerSequence, so the caller's deadline no longer ends the wait.
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.settleTimeout)
	defer cancel()
	callerDone := ctx.Done()

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			return nil, &UnsettledError{Hash: sub.TxJSON.Hash, LastLedgerSequence: tx.LastLedgerSequence}
		case <-callerDone:
			g.logger.WarnContext(waitCtx, "caller gave up on submitted transaction, waiting for ledger outcome",
				"operation", "submit",
				"tx_type", tx.TransactionType,
				"hash", sub.TxJSON.Hash,
				"error", ctx.Err().Error(),
			)
			callerDone = nil
			continue
		case <-ticker.C:
		}

		var res txResult
		err := g.client.Call(waitCtx, "tx", map[string]any{"transaction": sub.TxJSON.Hash, "binary": false}, &res)
		switch {
		case err == nil && res.Validated:
			if res.Hash == "" {
				res.Hash = sub.TxJSON.Hash
			}
			return &res, nil
		case err != nil && waitCtx.Err() != nil:
			continue
		case err != nil && !isNotFound(err):
			return nil, err
		}

		var validated ledgerResult
		if err := g.client.Call(waitCtx, "ledger", map[string]any{"ledger_index": "validated"}, &validated); err != nil {
			if waitCtx.Err() != nil {
				continue
			}
			return nil, fmt.Errorf("read validated ledger: %w", err)
		}
		if validated.LedgerIndex > tx.LastLedgerSequence {
			return nil, ErrTxExpired
		}
	}
}

func isNotFound(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == "txnNotFound"
}

// succeeded reports whether a validated transaction applied cleanly.
func succeeded(res *txResult) error {
	if res.Validated && res.Meta.TransactionResult == resultSuccess {
		return nil
	}
	result := res.Meta.TransactionResult
	if result == "" {
		result = "Unknown error"
	}
	return &EngineError{Result: result}
}
