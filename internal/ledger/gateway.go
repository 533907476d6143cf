package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ripplegate/ripplegate/internal/metrics"
)

const (
	DefaultEndpoint     = "https://s.altnet.rippletest.net:51234/"
	defaultPollInterval = time.Second
	defaultLedgerOffset = 20
	accountNFTsPageSize = 400
)

// DefaultSettleTimeout covers defaultLedgerOffset ledgers at the slowest
// observed close time.
const DefaultSettleTimeout = 90 * time.Second

type Config struct {
	Endpoint        string
	PlatformAddress string
	PlatformSeed    string
	// KeyType is sent with the seed when set; otherwise the seed is passed as
	// a generic secret. Seeds with the sEd prefix default to ed25519.
	KeyType      string
	PollInterval time.Duration
	// SettleTimeout bounds the wait for a submitted transaction to validate
	// or expire. The caller's context does not shorten it.
	SettleTimeout time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Gateway mints and transfers ticket tokens from the platform account.
type Gateway struct {
	client        *Client
	account       string
	seed          string
	keyType       string
	pollInterval  time.Duration
	ledgerOffset  uint32
	settleTimeout time.Duration
	logger        *slog.Logger
}

func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.PlatformAddress == "" || cfg.PlatformSeed == "" {
		return nil, ErrPlatformNotConfig
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	settle := cfg.SettleTimeout
	if settle <= 0 {
		settle = DefaultSettleTimeout
	}
	keyType := cfg.KeyType
	if keyType == "" && strings.HasPrefix(cfg.PlatformSeed, "sEd") {
		keyType = "ed25519"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{
		client:        NewClient(endpoint, cfg.HTTPClient),
		account:       cfg.PlatformAddress,
		seed:          cfg.PlatformSeed,
		keyType:       keyType,
		pollInterval:  poll,
		ledgerOffset:  defaultLedgerOffset,
		settleTimeout: settle,
		logger:        logger.With("module", "ledger", "layer", "adapter"),
	}, nil
}

// PlatformAddress is the account that mints and initially holds every token.
func (g *Gateway) PlatformAddress() string {
	return g.account
}

type MintRequest struct {
	EventTitle    string
	EventDate     string
	EventLocation string
	TicketID      string
	Destination   string
}

// TicketMetadata is stored hex-encoded in the token URI.
type TicketMetadata struct {
	Event    string `json:"event"`
	Date     string `json:"date"`
	Location string `json:"location"`
	TicketID string `json:"ticket_id"`
	Type     string `json:"type"`
	Platform string `json:"platform"`
}

type MintResult struct {
	// TokenID is empty when the mint validated but no new token page
	// recorded the token.
	TokenID  string
	TxHash   string
	Metadata TicketMetadata
}

func NewTicketMetadata(req MintRequest) TicketMetadata {
	return TicketMetadata{
		Event:    req.EventTitle,
		Date:     req.EventDate,
		Location: req.EventLocation,
		TicketID: req.TicketID,
		Type:     "Event Ticket",
		Platform: "RippleGate",
	}
}

// EncodeURI serializes metadata into the NFToken URI field.
func EncodeURI(meta TicketMetadata) (string, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	if len(raw) > maxURILength {
		return "", fmt.Errorf("%w: %d bytes", ErrMetadataTooLarge, len(raw))
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}

// MintTicketToken mints a token for one ticket and, when the destination is
// not the platform account, offers it to the destination.
//
// A failure of the mint itself is returned as *MintError. When the mint
// validated but the transfer did not, the result is returned together with
// ErrTransferFailed.
func (g *Gateway) MintTicketToken(ctx context.Context, req MintRequest) (result MintResult, err error) {
	start := time.Now()
	defer func() { metrics.TrackLedgerCall("mint", err, start) }()

	result.Metadata = NewTicketMetadata(req)
	uri, err := EncodeURI(result.Metadata)
	if err != nil {
		return result, &MintError{Err: err}
	}

	taxon := uint32(0)
	res, err := g.submitAndWait(ctx, transaction{
		TransactionType: "NFTokenMint",
		Account:         g.account,
		NFTokenTaxon:    &taxon,
		Flags:           flagTransferable,
		URI:             uri,
	})
	if err != nil {
		return result, &MintError{Err: err}
	}
	if err := succeeded(res); err != nil {
		return result, &MintError{Err: err}
	}

	result.TxHash = res.Hash
	result.TokenID = extractTokenID(res.Meta)

	g.logger.InfoContext(ctx, "ticket token minted",
		"operation", "mint",
		"outcome", "success",
		"ticket_id", req.TicketID,
		"nft_id", result.TokenID,
		"hash", result.TxHash,
	)

	if result.TokenID == "" || req.Destination == g.account {
		return result, nil
	}

	if err := g.TransferToken(ctx, result.TokenID, req.Destination); err != nil {
		g.logger.WarnContext(ctx, "ticket token transfer failed",
			"operation", "transfer",
			"outcome", "failure",
			"ticket_id", req.TicketID,
			"nft_id", result.TokenID,
			"error", err.Error(),
		)
		return result, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return result, nil
}

// TransferToken creates a zero-priced sell offer restricted to destination.
// A nil error means the offer validated with tesSUCCESS.
func (g *Gateway) TransferToken(ctx context.Context, tokenID, destination string) (err error) {
	start := time.Now()
	defer func() { metrics.TrackLedgerCall("transfer", err, start) }()

	res, err := g.submitAndWait(ctx, transaction{
		TransactionType: "NFTokenCreateOffer",
		Account:         g.account,
		NFTokenID:       tokenID,
		Amount:          "0",
		Destination:     destination,
		Flags:           flagSellNFToken,
	})
	if err != nil {
		return err
	}
	return succeeded(res)
}

// ListOwnedTokens returns every token held by wallet in the latest validated ledger.
func (g *Gateway) ListOwnedTokens(ctx context.Context, wallet string) (tokens []Token, err error) {
	start := time.Now()
	defer func() { metrics.TrackLedgerCall("account_nfts", err, start) }()

	tokens = []Token{}
	params := accountNFTsParams{
		Account:     wallet,
		LedgerIndex: "validated",
		Limit:       accountNFTsPageSize,
	}
	for {
		var page accountNFTsResult
		if err := g.client.Call(ctx, "account_nfts", params, &page); err != nil {
			return nil, err
		}
		tokens = append(tokens, page.AccountNFTs...)
		if len(page.Marker) == 0 || string(page.Marker) == "null" {
			return tokens, nil
		}
		params.Marker = page.Marker
	}
}

// VerifyOwnership reports whether wallet currently holds tokenID. Lookup
// failures yield false.
func (g *Gateway) VerifyOwnership(ctx context.Context, tokenID, wallet string) bool {
	tokens, err := g.ListOwnedTokens(ctx, wallet)
	if err != nil {
		g.logger.WarnContext(ctx, "ownership lookup failed",
			"operation", "verify_ownership",
			"outcome", "failure",
			"wallet", wallet,
			"error", err.Error(),
		)
		return false
	}
	for _, token := range tokens {
		if token.NFTokenID == tokenID {
			return true
		}
	}
	return false
}

func extractTokenID(meta txMeta) string {
	for _, node := range meta.AffectedNodes {
		if node.CreatedNode == nil || node.CreatedNode.LedgerEntryType != "NFTokenPage" {
			continue
		}
		tokens := node.CreatedNode.NewFields.NFTokens
		if len(tokens) > 0 {
			return tokens[0].NFToken.NFTokenID
		}
	}
	return ""
}
