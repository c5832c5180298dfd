package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/brojonat/solwallet/service/db"
	"github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/solana"
)

// InlineAirdropTimeout bounds one inline airdrop request end to end. The
// server write timeout and the client HTTP timeout both use it, so the
// confirmation wait is capped at MaxConfirmTimeout to leave room for the
// faucet call and the response.
const (
	InlineAirdropTimeout = 90 * time.Second
	MaxConfirmTimeout    = 75 * time.Second
)

// AirdropResult tracks one faucet request through confirmation.
type AirdropResult struct {
	ActivityID  string    `json:"activity_id,omitempty"`
	Address     string    `json:"address"`
	SOL         float64   `json:"sol"`
	Lamports    uint64    `json:"lamports"`
	Signature   string    `json:"signature"`
	Status      string    `json:"status"` // requested, confirmed, failed
	Error       string    `json:"error,omitempty"`
	ExplorerURL string    `json:"explorer_url"`
	RequestedAt time.Time `json:"requested_at"`
	WorkflowID  string    `json:"workflow_id,omitempty"`
}

// Airdrop requests sol from the faucet and waits for confirmation.
func (s *Service) Airdrop(ctx context.Context, address string, sol float64) (*AirdropResult, error) {
	result, err := s.RequestAirdrop(ctx, address, sol)
	if err != nil {
		return nil, err
	}
	s.RecordAirdrop(ctx, result)

	status, err := s.ConfirmAirdrop(ctx, result.Signature)
	s.FinishAirdrop(result, status, err)
	s.RecordAirdrop(ctx, result)
	if err != nil {
		return result, err
	}
	return result, nil
}

// ValidateAirdrop checks the address and requested amount.
func (s *Service) ValidateAirdrop(address string, sol float64) (solanago.PublicKey, uint64, error) {
	pk, err := ParseAddress(address)
	if err != nil {
		return pk, 0, err
	}
	if math.IsNaN(sol) || math.IsInf(sol, 0) || sol <= 0 {
		return pk, 0, fmt.Errorf("%w: airdrop amount must be greater than zero", solana.ErrInvalidAmount)
	}
	if s.opts.AirdropMaxSOL > 0 && sol > s.opts.AirdropMaxSOL {
		return pk, 0, fmt.Errorf("%w: requested %v SOL, max %v SOL", ErrAirdropTooLarge, sol, s.opts.AirdropMaxSOL)
	}
	lamports, err := solana.SOLToLamports(sol)
	if err != nil {
		return pk, 0, err
	}
	return pk, lamports, nil
}

// RequestAirdrop submits the faucet request without waiting for confirmation.
func (s *Service) RequestAirdrop(ctx context.Context, address string, sol float64) (*AirdropResult, error) {
	pk, lamports, err := s.ValidateAirdrop(address, sol)
	if err != nil {
		return nil, err
	}

	sig, err := s.chain.RequestAirdrop(ctx, pk, lamports)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAirdrop("request_failed", 0)
		}
		return nil, err
	}

	return &AirdropResult{
		Address:     address,
		SOL:         sol,
		Lamports:    lamports,
		Signature:   sig.String(),
		Status:      db.StatusRequested,
		ExplorerURL: ExplorerURL(sig.String(), s.opts.ExplorerCluster),
		RequestedAt: time.Now().UTC(),
	}, nil
}

// ConfirmAirdrop waits up to the configured timeout for signature to confirm.
func (s *Service) ConfirmAirdrop(ctx context.Context, signature string) (solana.SignatureStatus, error) {
	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return solana.SignatureStatus{Signature: signature}, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ConfirmTimeout)
	defer cancel()
	return s.chain.AwaitConfirmation(ctx, sig, s.opts.ConfirmInterval)
}

// FinishAirdrop applies a confirmation outcome to result.
func (s *Service) FinishAirdrop(result *AirdropResult, status solana.SignatureStatus, err error) {
	outcome := "confirmed"
	switch {
	case err == nil:
		result.Status = db.StatusConfirmed
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
		result.Status = db.StatusFailed
		result.Error = err.Error()
	default:
		outcome = "failed"
		result.Status = db.StatusFailed
		result.Error = err.Error()
	}
	if status.Err != nil && result.Error == "" {
		result.Error = *status.Err
	}
	if s.metrics != nil {
		s.metrics.RecordAirdrop(outcome, time.Since(result.RequestedAt).Seconds())
	}
}

// RecordAirdrop writes result to the activity log and publishes its event.
// The first call inserts a row and sets ActivityID; later calls update it.
// Failures are logged and never returned.
func (s *Service) RecordAirdrop(ctx context.Context, result *AirdropResult) {
	kind := airdropEventKind(result.Status)
	event := &nats.WalletEvent{
		ID:         result.ActivityID,
		Kind:       kind,
		Address:    result.Address,
		Network:    s.opts.Network,
		Signature:  result.Signature,
		Amount:     result.SOL,
		BaseUnits:  result.Lamports,
		Status:     result.Status,
		Error:      result.Error,
		OccurredAt: time.Now().UTC(),
	}

	if s.store != nil {
		activity, err := s.storeAirdrop(ctx, result)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to record airdrop activity",
				"address", result.Address,
				"signature", result.Signature,
				"error", err,
			)
		} else {
			result.ActivityID = activity.ID.String()
			event = nats.FromActivity(kind, activity)
		}
	}

	s.publish(ctx, event)
}

func (s *Service) storeAirdrop(ctx context.Context, result *AirdropResult) (*db.Activity, error) {
	sig := result.Signature
	var errText *string
	if result.Error != "" {
		e := result.Error
		errText = &e
	}

	if id, ok := parseActivityID(result.ActivityID); ok {
		return s.store.UpdateActivityStatus(ctx, db.UpdateActivityStatusParams{
			ID:        id,
			Status:    result.Status,
			Signature: &sig,
			Error:     errText,
		})
	}
	var workflowID *string
	if result.WorkflowID != "" {
		id := result.WorkflowID
		workflowID = &id
	}
	return s.store.RecordActivity(ctx, db.RecordActivityParams{
		Address:    result.Address,
		Network:    s.opts.Network,
		Kind:       db.KindAirdrop,
		Signature:  &sig,
		Amount:     result.SOL,
		BaseUnits:  clampInt64(result.Lamports),
		Status:     result.Status,
		Error:      errText,
		WorkflowID: workflowID,
	})
}

func airdropEventKind(status string) string {
	switch status {
	case db.StatusConfirmed:
		return nats.EventAirdropConfirmed
	case db.StatusFailed:
		return nats.EventAirdropFailed
	default:
		return nats.EventAirdropRequested
	}
}
