// Package wallet assembles the view models a wallet UI renders: balances,
// asset lists, history and prepared transfers. Queries degrade to empty
// defaults with an error message; transfer assembly propagates its errors.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brojonat/solwallet/service/db"
	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/solana"
)

var (
	ErrInsufficientBalance = errors.New("insufficient funds")
	ErrUnknownAsset        = errors.New("asset not held by wallet")
	ErrAirdropTooLarge     = errors.New("airdrop exceeds per-request limit")
	ErrActivityDisabled    = errors.New("activity log is not configured")
)

// Chain is the subset of the Solana client the wallet views need.
type Chain interface {
	GetBalance(ctx context.Context, owner solanago.PublicKey) (solana.Balance, error)
	GetTokenHoldings(ctx context.Context, owner solanago.PublicKey) ([]solana.TokenHolding, error)
	GetTransactionHistory(ctx context.Context, owner solanago.PublicKey, limit int) ([]*solana.Transaction, error)
	BuildTransferTransaction(ctx context.Context, params solana.BuildTransferParams) (*solana.TransferPlan, error)
	RequestAirdrop(ctx context.Context, account solanago.PublicKey, lamports uint64) (solanago.Signature, error)
	AwaitConfirmation(ctx context.Context, sig solanago.Signature, interval time.Duration) (solana.SignatureStatus, error)
}

// ActivityStore persists transfers and airdrops initiated through the service.
type ActivityStore interface {
	RecordActivity(ctx context.Context, params db.RecordActivityParams) (*db.Activity, error)
	UpdateActivityStatus(ctx context.Context, params db.UpdateActivityStatusParams) (*db.Activity, error)
	ListActivityByAddress(ctx context.Context, params db.ListActivityParams) ([]*db.Activity, error)
}

// Options tunes a Service.
type Options struct {
	Network         string
	ExplorerCluster string
	HistoryLimit    int
	AirdropMaxSOL   float64
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration
}

// Service builds wallet view models on top of a Chain. The activity store and
// event publisher are optional; pass nil to disable them.
type Service struct {
	chain     Chain
	store     ActivityStore
	publisher nats.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	opts      Options
}

// NewService creates a wallet service.
func NewService(chain Chain, store ActivityStore, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = solana.DefaultHistoryLimit
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 60 * time.Second
	}
	if opts.ConfirmTimeout > MaxConfirmTimeout {
		opts.ConfirmTimeout = MaxConfirmTimeout
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = solana.DefaultConfirmPollInterval
	}
	return &Service{
		chain:     chain,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		opts:      opts,
	}
}

// BalanceView is the SOL balance of a wallet.
type BalanceView struct {
	Address  string  `json:"address"`
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
	Error    string  `json:"error,omitempty"`
}

// TokensView lists the non-empty token holdings of a wallet.
type TokensView struct {
	Address string                `json:"address"`
	Tokens  []solana.TokenHolding `json:"tokens"`
	Error   string                `json:"error,omitempty"`
}

// Overview combines balance and token holdings. Each half degrades on its own.
type Overview struct {
	Address string      `json:"address"`
	Balance BalanceView `json:"balance"`
	Tokens  TokensView  `json:"tokens"`
}

// Asset is one transferable asset, SOL included.
type Asset struct {
	Mint     string  `json:"mint"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Decimals uint8   `json:"decimals"`
	Native   bool    `json:"native"`
}

// AssetsView is the asset selector content: SOL first, then tokens.
type AssetsView struct {
	Address string  `json:"address"`
	Assets  []Asset `json:"assets"`
	Error   string  `json:"error,omitempty"`
}

// HistoryView is a page of recent transactions.
type HistoryView struct {
	Address      string                `json:"address"`
	Transactions []*solana.Transaction `json:"transactions"`
	Error        string                `json:"error,omitempty"`
}

// ParseAddress decodes a base58 public key.
func ParseAddress(address string) (solanago.PublicKey, error) {
	pk, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("%w: %s", solana.ErrInvalidAddress, address)
	}
	return pk, nil
}

// Balance returns the SOL balance, or zero with an error message.
func (s *Service) Balance(ctx context.Context, address string) (BalanceView, error) {
	view := BalanceView{Address: address}
	owner, err := ParseAddress(address)
	if err != nil {
		return view, err
	}

	bal, err := s.chain.GetBalance(ctx, owner)
	if err != nil {
		s.fallback(ctx, "balance", address, err)
		view.Error = FriendlyError(err)
		return view, nil
	}
	view.Lamports = bal.Lamports
	view.SOL = bal.SOL
	return view, nil
}

// Tokens returns token holdings, or an empty list with an error message.
func (s *Service) Tokens(ctx context.Context, address string) (TokensView, error) {
	view := TokensView{Address: address, Tokens: []solana.TokenHolding{}}
	owner, err := ParseAddress(address)
	if err != nil {
		return view, err
	}

	holdings, err := s.chain.GetTokenHoldings(ctx, owner)
	if err != nil {
		s.fallback(ctx, "tokens", address, err)
		view.Error = FriendlyError(err)
		return view, nil
	}
	if holdings != nil {
		view.Tokens = holdings
	}
	return view, nil
}

// Overview fetches balance and tokens concurrently.
func (s *Service) Overview(ctx context.Context, address string) (Overview, error) {
	overview := Overview{Address: address}
	if _, err := ParseAddress(address); err != nil {
		return overview, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview.Balance, err = s.Balance(gctx, address)
		return err
	})
	g.Go(func() error {
		var err error
		overview.Tokens, err = s.Tokens(gctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		return overview, err
	}
	return overview, nil
}

// Assets lists SOL followed by each token holding. Tokens carry no metadata
// on chain, so their symbol and name are prefixes of the mint address.
func (s *Service) Assets(ctx context.Context, address string) (AssetsView, error) {
	view := AssetsView{Address: address}
	overview, err := s.Overview(ctx, address)
	if err != nil {
		return view, err
	}

	view.Assets = make([]Asset, 0, len(overview.Tokens.Tokens)+1)
	view.Assets = append(view.Assets, solAsset(overview.Balance.SOL))
	for _, t := range overview.Tokens.Tokens {
		view.Assets = append(view.Assets, tokenAsset(t))
	}

	switch {
	case overview.Balance.Error != "":
		view.Error = overview.Balance.Error
	case overview.Tokens.Error != "":
		view.Error = overview.Tokens.Error
	}
	return view, nil
}

// History returns up to limit recent transactions, or an empty list with an
// error message. A non-positive limit uses the configured default.
func (s *Service) History(ctx context.Context, address string, limit int) (HistoryView, error) {
	view := HistoryView{Address: address, Transactions: []*solana.Transaction{}}
	owner, err := ParseAddress(address)
	if err != nil {
		return view, err
	}
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}

	txns, err := s.chain.GetTransactionHistory(ctx, owner, limit)
	if err != nil {
		s.fallback(ctx, "history", address, err)
		view.Error = FriendlyError(err)
		return view, nil
	}
	if txns != nil {
		view.Transactions = txns
	}
	return view, nil
}

// Activity lists transfers and airdrops recorded for address.
func (s *Service) Activity(ctx context.Context, address string, limit, offset int32) ([]*db.Activity, error) {
	if s.store == nil {
		return nil, ErrActivityDisabled
	}
	if _, err := ParseAddress(address); err != nil {
		return nil, err
	}
	return s.store.ListActivityByAddress(ctx, db.ListActivityParams{
		Address: address,
		Limit:   limit,
		Offset:  offset,
	})
}

func (s *Service) fallback(ctx context.Context, query, address string, err error) {
	s.logger.WarnContext(ctx, "wallet query degraded to default",
		"query", query,
		"address", address,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.RecordQueryFallback(query)
	}
}

func solAsset(sol float64) Asset {
	return Asset{
		Mint:     solana.NativeMint.String(),
		Symbol:   "SOL",
		Name:     "Solana",
		Amount:   sol,
		Decimals: solana.SOLDecimals,
		Native:   true,
	}
}

func tokenAsset(t solana.TokenHolding) Asset {
	return Asset{
		Mint:     t.Mint,
		Symbol:   prefix(t.Mint, 4),
		Name:     prefix(t.Mint, 8),
		Amount:   t.Amount,
		Decimals: t.Decimals,
	}
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TransferRequest is a user's intent to send an asset.
type TransferRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
	Mint   string  `json:"mint,omitempty"` // empty means SOL
}

// PreparedTransfer is an unsigned transfer ready for the passkey signer.
type PreparedTransfer struct {
	ActivityID              string  `json:"activity_id,omitempty"`
	Kind                    string  `json:"kind"`
	From                    string  `json:"from"`
	To                      string  `json:"to"`
	Mint                    string  `json:"mint"`
	Amount                  float64 `json:"amount"`
	BaseUnits               uint64  `json:"base_units"`
	Decimals                uint8   `json:"decimals"`
	Blockhash               string  `json:"blockhash"`
	FeePayer                string  `json:"fee_payer"`
	RecipientTokenAccount   string  `json:"recipient_token_account,omitempty"`
	CreatesRecipientAccount bool    `json:"creates_recipient_account"`
	Transaction             string  `json:"transaction"` // base64 wire transaction, zeroed signatures
	Message                 string  `json:"message"`     // base64 message bytes to sign
	ExplorerURLTemplate     string  `json:"explorer_url_template"`
}

// PrepareTransfer validates req against the sender's current holdings and
// assembles the unsigned transaction.
func (s *Service) PrepareTransfer(ctx context.Context, req TransferRequest) (*PreparedTransfer, error) {
	params, err := s.validateTransfer(ctx, req)
	if err != nil {
		kind := string(solana.TransferKindToken)
		if req.Mint == "" || req.Mint == solana.NativeMint.String() {
			kind = string(solana.TransferKindNative)
		}
		if s.metrics != nil {
			s.metrics.RecordTransferPrepared(kind, "rejected")
		}
		s.logger.InfoContext(ctx, "transfer rejected",
			"from", req.From,
			"to", req.To,
			"mint", req.Mint,
			"amount", req.Amount,
			"error", err,
		)
		return nil, err
	}

	plan, err := s.chain.BuildTransferTransaction(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("build transfer: %w", err)
	}

	txB64, err := plan.SerializeUnsigned()
	if err != nil {
		return nil, err
	}
	msgB64, err := plan.SerializeMessage()
	if err != nil {
		return nil, err
	}

	prepared := &PreparedTransfer{
		Kind:                    string(plan.Kind),
		From:                    params.From.String(),
		To:                      params.To.String(),
		Mint:                    plan.Mint.String(),
		Amount:                  params.Amount,
		BaseUnits:               plan.BaseUnits,
		Decimals:                plan.Decimals,
		Blockhash:               plan.Blockhash.String(),
		FeePayer:                plan.FeePayer.String(),
		CreatesRecipientAccount: plan.CreatesRecipientAccount,
		Transaction:             txB64,
		Message:                 msgB64,
		ExplorerURLTemplate:     ExplorerURL("{signature}", s.opts.ExplorerCluster),
	}
	if plan.DestinationTokenAccount != nil {
		prepared.RecipientTokenAccount = plan.DestinationTokenAccount.String()
	}

	s.recordTransfer(ctx, prepared)
	return prepared, nil
}

func (s *Service) validateTransfer(ctx context.Context, req TransferRequest) (solana.BuildTransferParams, error) {
	var params solana.BuildTransferParams

	from, err := solanago.PublicKeyFromBase58(req.From)
	if err != nil {
		return params, fmt.Errorf("%w: sender %q", solana.ErrInvalidAddress, req.From)
	}
	to, err := solanago.PublicKeyFromBase58(req.To)
	if err != nil {
		return params, fmt.Errorf("%w: recipient %q", solana.ErrInvalidAddress, req.To)
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return params, fmt.Errorf("%w: amount must be greater than zero", solana.ErrInvalidAmount)
	}

	mint := solana.NativeMint
	if req.Mint != "" {
		mint, err = solanago.PublicKeyFromBase58(req.Mint)
		if err != nil {
			return params, fmt.Errorf("%w: mint %q", solana.ErrInvalidAddress, req.Mint)
		}
	}

	available, err := s.available(ctx, from, mint)
	if err != nil {
		return params, err
	}
	if req.Amount > available {
		return params, fmt.Errorf("%w: requested %v, available %v", ErrInsufficientBalance, req.Amount, available)
	}

	return solana.BuildTransferParams{From: from, To: to, Amount: req.Amount, Mint: mint}, nil
}

// available returns the sender's spendable amount of mint in human units.
func (s *Service) available(ctx context.Context, owner, mint solanago.PublicKey) (float64, error) {
	if solana.IsNativeMint(mint) {
		bal, err := s.chain.GetBalance(ctx, owner)
		if err != nil {
			return 0, fmt.Errorf("get sender balance: %w", err)
		}
		return bal.SOL, nil
	}

	holdings, err := s.chain.GetTokenHoldings(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("get sender tokens: %w", err)
	}
	for _, h := range holdings {
		if h.Mint == mint.String() {
			return h.Amount, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, mint)
}

func (s *Service) recordTransfer(ctx context.Context, p *PreparedTransfer) {
	event := &nats.WalletEvent{
		Kind:       nats.EventTransferPrepared,
		Address:    p.From,
		Network:    s.opts.Network,
		Mint:       p.Mint,
		Amount:     p.Amount,
		BaseUnits:  p.BaseUnits,
		Recipient:  p.To,
		Status:     db.StatusPrepared,
		OccurredAt: time.Now().UTC(),
	}

	if s.store != nil {
		mint, recipient := p.Mint, p.To
		activity, err := s.store.RecordActivity(ctx, db.RecordActivityParams{
			Address:   p.From,
			Network:   s.opts.Network,
			Kind:      db.KindTransfer,
			Mint:      &mint,
			Amount:    p.Amount,
			BaseUnits: clampInt64(p.BaseUnits),
			Recipient: &recipient,
			Status:    db.StatusPrepared,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to record transfer activity", "from", p.From, "error", err)
		} else {
			p.ActivityID = activity.ID.String()
			event = nats.FromActivity(nats.EventTransferPrepared, activity)
		}
	}

	s.publish(ctx, event)
}

func (s *Service) publish(ctx context.Context, event *nats.WalletEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish wallet event",
			"kind", event.Kind,
			"address", event.Address,
			"error", err,
		)
	}
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func parseActivityID(id string) (uuid.UUID, bool) {
	if id == "" {
		return uuid.Nil, false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}
