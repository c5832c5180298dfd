package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/brojonat/solwallet/service/metrics"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100

	defaultHistoryConcurrency = 4
)

var (
	// ErrAccountNotFound is returned when an account does not exist on chain.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotTokenMint is returned when an account exists but is not owned by a token program.
	ErrNotTokenMint = errors.New("not a token mint")
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetBalanceResult, error)

	GetTokenAccountsByOwner(
		ctx context.Context,
		owner solana.PublicKey,
		conf *rpc.GetTokenAccountsConfig,
		opts *rpc.GetTokenAccountsOpts,
	) (*rpc.GetTokenAccountsResult, error)

	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)

	GetAccountInfo(
		ctx context.Context,
		account solana.PublicKey,
		opts *rpc.GetAccountInfoOpts,
	) (*rpc.GetAccountInfoResult, error)

	GetLatestBlockhash(
		ctx context.Context,
		commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	RequestAirdrop(
		ctx context.Context,
		account solana.PublicKey,
		lamports uint64,
		commitment rpc.CommitmentType,
	) (solana.Signature, error)

	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		signatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	Commitment         rpc.CommitmentType // default "confirmed"
	HistoryConcurrency int                // parallel getTransaction calls per history fetch
}

// Client wraps the RPC client with wallet-level queries and transfer assembly.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "devnet", rpc host)

	commitment         rpc.CommitmentType
	historyConcurrency int
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger, opts Options) *Client {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.HistoryConcurrency <= 0 {
		opts.HistoryConcurrency = defaultHistoryConcurrency
	}
	return &Client{
		rpc:                rpcClient,
		logger:             logger,
		metrics:            m,
		endpoint:           endpoint,
		commitment:         opts.Commitment,
		historyConcurrency: opts.HistoryConcurrency,
	}
}

// observe records the outcome of a single RPC call.
func (c *Client) observe(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil && !errors.Is(err, rpc.ErrNotFound) {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

// GetBalance returns the native SOL balance of owner.
func (c *Client) GetBalance(ctx context.Context, owner solana.PublicKey) (Balance, error) {
	start := time.Now()
	res, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	c.observe("GetBalance", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get balance",
			"wallet", owner.String(),
			"error", err,
		)
		return Balance{}, fmt.Errorf("get balance: %w", err)
	}

	bal := Balance{Lamports: res.Value, SOL: LamportsToSOL(res.Value)}
	c.logger.DebugContext(ctx, "fetched balance",
		"wallet", owner.String(),
		"lamports", bal.Lamports,
	)
	return bal, nil
}

// parsedTokenAccount is the jsonParsed shape of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Type string `json:"type"`
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				Amount   string   `json:"amount"`
				Decimals uint8    `json:"decimals"`
				UIAmount *float64 `json:"uiAmount"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// GetTokenHoldings returns the SPL token accounts owned by owner with a
// non-zero balance.
func (c *Client) GetTokenHoldings(ctx context.Context, owner solana.PublicKey) ([]TokenHolding, error) {
	programID := solana.TokenProgramID
	start := time.Now()
	res, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Encoding:   solana.EncodingJSONParsed,
			Commitment: c.commitment,
		},
	)
	c.observe("GetTokenAccountsByOwner", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get token accounts",
			"wallet", owner.String(),
			"error", err,
		)
		return nil, fmt.Errorf("get token accounts: %w", err)
	}

	holdings := make([]TokenHolding, 0, len(res.Value))
	for _, acct := range res.Value {
		if acct == nil || acct.Account.Data == nil {
			continue
		}
		raw := acct.Account.Data.GetRawJSON()
		if len(raw) == 0 {
			c.logger.WarnContext(ctx, "token account not returned as parsed JSON",
				"token_account", acct.Pubkey.String(),
			)
			continue
		}

		var parsed parsedTokenAccount
		if err := json.Unmarshal(raw, &parsed); err != nil {
			c.logger.WarnContext(ctx, "failed to decode token account",
				"token_account", acct.Pubkey.String(),
				"error", err,
			)
			continue
		}

		info := parsed.Parsed.Info
		rawAmount, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to parse token amount",
				"token_account", acct.Pubkey.String(),
				"amount", info.TokenAmount.Amount,
				"error", err,
			)
			continue
		}
		amount := FromBaseUnits(rawAmount, info.TokenAmount.Decimals)
		if info.TokenAmount.UIAmount != nil {
			amount = *info.TokenAmount.UIAmount
		}
		if amount <= 0 {
			continue
		}

		holdings = append(holdings, TokenHolding{
			Mint:         info.Mint,
			TokenAccount: acct.Pubkey.String(),
			Amount:       amount,
			RawAmount:    rawAmount,
			Decimals:     info.TokenAmount.Decimals,
		})
	}

	c.logger.DebugContext(ctx, "fetched token holdings",
		"wallet", owner.String(),
		"accounts", len(res.Value),
		"non_zero", len(holdings),
	)
	return holdings, nil
}

// GetTransactionHistory returns the most recent transactions touching owner,
// newest first. Details are fetched concurrently; a record whose detail
// fetch fails keeps its signature metadata and has a nil Raw payload.
func (c *Client) GetTransactionHistory(ctx context.Context, owner solana.PublicKey, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddress(ctx, owner, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	})
	c.observe("GetSignaturesForAddress", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get signatures",
			"wallet", owner.String(),
			"error", err,
		)
		return nil, fmt.Errorf("get signatures: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordRPCSignaturesPerCall(c.endpoint, float64(len(signatures)))
	}

	records := make([]*Transaction, len(signatures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.historyConcurrency)
	for i, sig := range signatures {
		g.Go(func() error {
			records[i] = c.fetchHistoryRecord(gctx, sig)
			return nil
		})
	}
	_ = g.Wait()

	c.logger.DebugContext(ctx, "fetched transaction history",
		"wallet", owner.String(),
		"count", len(records),
	)
	return records, nil
}

func (c *Client) fetchHistoryRecord(ctx context.Context, sig *rpc.TransactionSignature) *Transaction {
	maxVersion := uint64(0)
	start := time.Now()
	result, err := c.rpc.GetTransaction(ctx, sig.Signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	c.observe("GetTransaction", start, err)
	if err != nil || result == nil {
		c.logger.WarnContext(ctx, "failed to get transaction details, using metadata only",
			"signature", sig.Signature.String(),
			"error", err,
		)
		c.recordHistory("metadata_only")
		return signatureToDomain(sig)
	}

	txn, err := parseTransactionFromResult(sig, result)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to parse transaction, using metadata only",
			"signature", sig.Signature.String(),
			"error", err,
		)
		c.recordHistory("parse_error")
		fallback := signatureToDomain(sig)
		if raw, mErr := json.Marshal(result); mErr == nil {
			fallback.Raw = raw
		}
		return fallback
	}

	c.recordHistory("detailed")
	return txn
}

func (c *Client) recordHistory(status string) {
	if c.metrics != nil {
		c.metrics.RecordHistoryRecord(status)
	}
}

// getAccount fetches raw account data, mapping a missing account to ErrAccountNotFound.
func (c *Client) getAccount(ctx context.Context, account solana.PublicKey) (*rpc.Account, error) {
	start := time.Now()
	res, err := c.rpc.GetAccountInfo(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	c.observe("GetAccountInfo", start, err)
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (res == nil || res.Value == nil)) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", account, err)
	}
	return res.Value, nil
}

// AccountExists reports whether account exists on chain.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.getAccount(ctx, account)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetMintDecimals reads the decimals field of an SPL token mint.
// Returns ErrAccountNotFound if the mint account does not exist and
// ErrNotTokenMint if it is not owned by a token program.
func (c *Client) GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	acct, err := c.getAccount(ctx, mint)
	if err != nil {
		return 0, err
	}
	if !acct.Owner.Equals(solana.TokenProgramID) && !acct.Owner.Equals(solana.Token2022ProgramID) {
		return 0, fmt.Errorf("%w: account %s owned by %s", ErrNotTokenMint, mint, acct.Owner)
	}

	var m token.Mint
	if err := bin.NewBinDecoder(acct.Data.GetBinary()).Decode(&m); err != nil {
		return 0, fmt.Errorf("decode mint %s: %w", mint, err)
	}
	return m.Decimals, nil
}

// GetLatestBlockhash returns a recent blockhash to anchor a new transaction.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	start := time.Now()
	res, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	c.observe("GetLatestBlockhash", start, err)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, errors.New("get latest blockhash: empty response")
	}
	return res.Value.Blockhash, nil
}
