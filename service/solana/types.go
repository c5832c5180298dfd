package solana

import (
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Balance is the native SOL balance of an account.
type Balance struct {
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
}

// TokenHolding is a single SPL token account owned by a wallet.
type TokenHolding struct {
	Mint         string  `json:"mint"`
	TokenAccount string  `json:"token_account"`
	Amount       float64 `json:"amount"` // human-readable (uiAmount)
	RawAmount    uint64  `json:"raw_amount"`
	Decimals     uint8   `json:"decimals"`
}

// Transaction represents a transaction in a wallet's history.
// This is our domain model, independent of the RPC response format.
type Transaction struct {
	Signature   string          `json:"signature"`
	Slot        uint64          `json:"slot"`
	BlockTime   *time.Time      `json:"block_time,omitempty"`
	Err         *string         `json:"err,omitempty"`         // nil if the transaction succeeded
	Memo        *string         `json:"memo,omitempty"`        // memo as reported by the signature list
	ParsedMemo  *string         `json:"parsed_memo,omitempty"` // memo decoded from the memo instruction
	Amount      uint64          `json:"amount"`                // lamports or token base units
	TokenMint   *string         `json:"token_mint,omitempty"`  // nil for native SOL transfers
	FromAddress *string         `json:"from_address,omitempty"`
	Raw         json.RawMessage `json:"tx,omitempty"` // raw getTransaction payload, nil if unavailable
}

// TransferKind distinguishes native SOL transfers from SPL token transfers.
type TransferKind string

const (
	TransferKindNative TransferKind = "native"
	TransferKindToken  TransferKind = "spl-token"
)

// BuildTransferParams contains the inputs for assembling a transfer.
type BuildTransferParams struct {
	From   solana.PublicKey
	To     solana.PublicKey
	Amount float64 // human-readable units (SOL or token units)
	Mint   solana.PublicKey
}

// TransferPlan is an assembled, unsigned transfer transaction and the
// decisions that went into it.
type TransferPlan struct {
	Transaction *solana.Transaction

	Kind      TransferKind
	Mint      solana.PublicKey
	BaseUnits uint64 // lamports for native transfers, token base units otherwise
	Decimals  uint8
	Blockhash solana.Hash
	FeePayer  solana.PublicKey

	// Token transfers only.
	SourceTokenAccount      *solana.PublicKey
	DestinationTokenAccount *solana.PublicKey
	CreatesRecipientAccount bool
}
