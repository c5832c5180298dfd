package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// NativeMint is the wrapped-SOL mint. Passing it as the transfer mint selects
// a native System Program transfer instead of an SPL token transfer.
var NativeMint = solana.SolMint

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrNoInstructions = errors.New("transaction has no instructions")
)

// IsNativeMint reports whether mint is the wrapped-SOL sentinel.
func IsNativeMint(mint solana.PublicKey) bool {
	return mint.Equals(NativeMint)
}

// BuildTransferTransaction assembles an unsigned transfer of params.Amount
// from params.From to params.To. The sender pays fees and, when needed, the
// rent for the recipient's associated token account.
func (c *Client) BuildTransferTransaction(ctx context.Context, params BuildTransferParams) (*TransferPlan, error) {
	if params.From.IsZero() {
		return nil, fmt.Errorf("%w: sender is empty", ErrInvalidAddress)
	}
	if params.To.IsZero() {
		return nil, fmt.Errorf("%w: recipient is empty", ErrInvalidAddress)
	}

	plan := &TransferPlan{
		Mint:     params.Mint,
		FeePayer: params.From,
	}

	var instructions []solana.Instruction
	if IsNativeMint(params.Mint) {
		ix, err := c.nativeTransferInstructions(params, plan)
		if err != nil {
			return nil, err
		}
		instructions = ix
	} else {
		ix, err := c.tokenTransferInstructions(ctx, params, plan)
		if err != nil {
			return nil, err
		}
		instructions = ix
	}
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	blockhash, err := c.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	plan.Blockhash = blockhash

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(params.From))
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}
	plan.Transaction = tx

	c.logger.InfoContext(ctx, "assembled transfer",
		"kind", plan.Kind,
		"from", params.From.String(),
		"to", params.To.String(),
		"mint", params.Mint.String(),
		"base_units", plan.BaseUnits,
		"creates_recipient_account", plan.CreatesRecipientAccount,
	)
	if c.metrics != nil {
		c.metrics.RecordTransferPrepared(string(plan.Kind), "success")
	}
	return plan, nil
}

func (c *Client) nativeTransferInstructions(params BuildTransferParams, plan *TransferPlan) ([]solana.Instruction, error) {
	lamports, err := SOLToLamports(params.Amount)
	if err != nil {
		return nil, err
	}
	plan.Kind = TransferKindNative
	plan.Decimals = SOLDecimals
	plan.BaseUnits = lamports

	ix, err := system.NewTransferInstruction(lamports, params.From, params.To).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build system transfer: %w", err)
	}
	return []solana.Instruction{ix}, nil
}

func (c *Client) tokenTransferInstructions(ctx context.Context, params BuildTransferParams, plan *TransferPlan) ([]solana.Instruction, error) {
	if params.Mint.IsZero() {
		return nil, fmt.Errorf("%w: mint is empty", ErrInvalidAddress)
	}
	plan.Kind = TransferKindToken

	decimals, err := c.GetMintDecimals(ctx, params.Mint)
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrNotTokenMint):
		// An unknown mint scales with zero decimals; the transfer itself
		// will fail on submission.
		c.logger.WarnContext(ctx, "mint decimals unavailable, assuming 0 decimals",
			"mint", params.Mint.String(),
			"error", err,
		)
		decimals = 0
	case err != nil:
		return nil, fmt.Errorf("resolve mint decimals: %w", err)
	}
	plan.Decimals = decimals

	units, err := ToBaseUnits(params.Amount, decimals)
	if err != nil {
		return nil, err
	}
	plan.BaseUnits = units

	fromATA, _, err := solana.FindAssociatedTokenAddress(params.From, params.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive sender token account: %w", err)
	}
	toATA, _, err := solana.FindAssociatedTokenAddress(params.To, params.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive recipient token account: %w", err)
	}
	plan.SourceTokenAccount = &fromATA
	plan.DestinationTokenAccount = &toATA

	exists, err := c.AccountExists(ctx, toATA)
	if err != nil {
		return nil, fmt.Errorf("look up recipient token account: %w", err)
	}

	var instructions []solana.Instruction
	if !exists {
		create, err := associatedtokenaccount.NewCreateInstruction(params.From, params.To, params.Mint).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("build create token account: %w", err)
		}
		instructions = append(instructions, create)
		plan.CreatesRecipientAccount = true
	}

	transfer, err := token.NewTransferInstruction(units, fromATA, toATA, params.From, []solana.PublicKey{}).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build token transfer: %w", err)
	}
	return append(instructions, transfer), nil
}

// SerializeUnsigned returns the wire-format transaction, base64 encoded,
// with zeroed placeholders in every required signature slot.
func (p *TransferPlan) SerializeUnsigned() (string, error) {
	if p == nil || p.Transaction == nil {
		return "", ErrNoInstructions
	}
	out, err := p.Transaction.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// SerializeMessage returns the base64 message bytes a signer signs.
func (p *TransferPlan) SerializeMessage() (string, error) {
	if p == nil || p.Transaction == nil {
		return "", ErrNoInstructions
	}
	out, err := p.Transaction.Message.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}
