package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"

	"github.com/brojonat/solwallet/service/db"
	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/solana"
	"github.com/brojonat/solwallet/service/wallet"
)

// ErrTypeInvalidAirdrop marks airdrop requests that retrying cannot fix.
const ErrTypeInvalidAirdrop = "InvalidAirdrop"

// AirdropInput contains the input parameters for an airdrop.
type AirdropInput struct {
	Address string  `json:"address"`
	SOL     float64 `json:"sol"`
}

// AirdropService defines the wallet operations needed by activities.
// This allows for easy mocking in tests.
type AirdropService interface {
	RequestAirdrop(ctx context.Context, address string, sol float64) (*wallet.AirdropResult, error)
	ConfirmAirdrop(ctx context.Context, signature string) (solana.SignatureStatus, error)
	FinishAirdrop(result *wallet.AirdropResult, status solana.SignatureStatus, err error)
	RecordAirdrop(ctx context.Context, result *wallet.AirdropResult)
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	service AirdropService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(service AirdropService, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		service: service,
		metrics: m,
		logger:  logger,
	}
}

func (a *Activities) observe(activity string, start time.Time, err error) {
	if a.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordActivityDuration(activity, status, time.Since(start).Seconds())
}

// RequestAirdrop asks the faucet for input.SOL. Invalid input is returned as
// a non-retryable error.
func (a *Activities) RequestAirdrop(ctx context.Context, input AirdropInput) (result *wallet.AirdropResult, err error) {
	start := time.Now()
	defer func() { a.observe("RequestAirdrop", start, err) }()

	result, err = a.service.RequestAirdrop(ctx, input.Address, input.SOL)
	if err != nil {
		if errors.Is(err, solana.ErrInvalidAddress) ||
			errors.Is(err, solana.ErrInvalidAmount) ||
			errors.Is(err, wallet.ErrAirdropTooLarge) {
			return nil, temporalsdk.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidAirdrop, err)
		}
		a.logger.ErrorContext(ctx, "airdrop request failed",
			"address", input.Address,
			"error", err,
		)
		return nil, fmt.Errorf("request airdrop: %w", err)
	}
	return result, nil
}

// AwaitAirdropConfirmation waits for the airdrop signature to confirm. A
// transaction that fails on chain completes the activity with a failed
// result; timeouts and RPC errors are returned so the attempt is retried.
func (a *Activities) AwaitAirdropConfirmation(ctx context.Context, input *wallet.AirdropResult) (result *wallet.AirdropResult, err error) {
	start := time.Now()
	defer func() { a.observe("AwaitAirdropConfirmation", start, err) }()

	status, confirmErr := a.service.ConfirmAirdrop(ctx, input.Signature)
	if confirmErr != nil && !errors.Is(confirmErr, solana.ErrTransactionFailed) {
		a.logger.WarnContext(ctx, "airdrop not confirmed",
			"signature", input.Signature,
			"error", confirmErr,
		)
		return nil, fmt.Errorf("await confirmation: %w", confirmErr)
	}

	out := *input
	a.service.FinishAirdrop(&out, status, confirmErr)
	a.logger.InfoContext(ctx, "airdrop settled",
		"signature", out.Signature,
		"status", out.Status,
	)
	return &out, nil
}

// RecordAirdrop stores the airdrop and publishes its event. It never fails;
// recording is best effort.
func (a *Activities) RecordAirdrop(ctx context.Context, input *wallet.AirdropResult) (*wallet.AirdropResult, error) {
	start := time.Now()
	defer func() { a.observe("RecordAirdrop", start, nil) }()

	out := *input
	a.service.RecordAirdrop(ctx, &out)

	if a.metrics != nil && out.Status != db.StatusRequested && !out.RequestedAt.IsZero() {
		a.metrics.RecordWorkflowDuration(out.Status, time.Since(out.RequestedAt).Seconds())
	}
	return &out, nil
}
