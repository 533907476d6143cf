package ledger

import "encoding/json"

// Transaction flags used by the gateway.
const (
	flagTransferable uint32 = 0x00000008 // NFTokenMint tfTransferable
	flagSellNFToken  uint32 = 0x00000001 // NFTokenCreateOffer tfSellNFToken
)

const (
	resultSuccess = "tesSUCCESS"

	// maxURILength is the ledger's limit on the NFToken URI field, in bytes.
	maxURILength = 256
)

type transaction struct {
	TransactionType    string  `json:"TransactionType"`
	Account            string  `json:"Account"`
	Flags              uint32  `json:"Flags,omitempty"`
	NFTokenTaxon       *uint32 `json:"NFTokenTaxon,omitempty"`
	URI                string  `json:"URI,omitempty"`
	NFTokenID          string  `json:"NFTokenID,omitempty"`
	Amount             string  `json:"Amount,omitempty"`
	Destination        string  `json:"Destination,omitempty"`
	LastLedgerSequence uint32  `json:"LastLedgerSequence,omitempty"`
}

type submitParams struct {
	TxJSON     transaction `json:"tx_json"`
	Secret     string      `json:"secret,omitempty"`
	Seed       string      `json:"seed,omitempty"`
	KeyType    string      `json:"key_type,omitempty"`
	FeeMultMax int         `json:"fee_mult_max,omitempty"`
}

type submitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

type ledgerCurrentResult struct {
	LedgerCurrentIndex uint32 `json:"ledger_current_index"`
}

type ledgerResult struct {
	LedgerIndex uint32 `json:"ledger_index"`
	Validated   bool   `json:"validated"`
}

type txResult struct {
	Hash      string `json:"hash"`
	Validated bool   `json:"validated"`
	Meta      txMeta `json:"meta"`
}

type txMeta struct {
	TransactionResult string         `json:"TransactionResult"`
	AffectedNodes     []affectedNode `json:"AffectedNodes"`
}

type affectedNode struct {
	CreatedNode *createdNode `json:"CreatedNode,omitempty"`
}

type createdNode struct {
	LedgerEntryType string `json:"LedgerEntryType"`
	NewFields       struct {
		NFTokens []struct {
			NFToken struct {
				NFTokenID string `json:"NFTokenID"`
			} `json:"NFToken"`
		} `json:"NFTokens"`
	} `json:"NewFields"`
}

type accountNFTsParams struct {
	Account     string          `json:"account"`
	LedgerIndex string          `json:"ledger_index"`
	Limit       int             `json:"limit,omitempty"`
	Marker      json.RawMessage `json:"marker,omitempty"`
}

type accountNFTsResult struct {
	AccountNFTs []Token         `json:"account_nfts"`
	Marker      json.RawMessage `json:"marker,omitempty"`
}

// Token is an NFT held by an account, as reported by account_nfts.
type Token struct {
	NFTokenID    string `json:"NFTokenID"`
	Issuer       string `json:"Issuer"`
	NFTokenTaxon uint32 `json:"NFTokenTaxon"`
	URI          string `json:"URI,omitempty"`
	Flags        uint32 `json:"Flags"`
	Serial       uint32 `json:"nft_serial"`
}
