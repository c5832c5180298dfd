package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrTransactionFailed is returned when a confirmed transaction carries an error.
var ErrTransactionFailed = errors.New("transaction failed")

// DefaultConfirmPollInterval is how often AwaitConfirmation polls signature status.
const DefaultConfirmPollInterval = 2 * time.Second

// SignatureStatus is the cluster's view of a submitted signature.
type SignatureStatus struct {
	Signature          string  `json:"signature"`
	Slot               uint64  `json:"slot"`
	ConfirmationStatus string  `json:"confirmation_status"` // "", processed, confirmed, finalized
	Err                *string `json:"err,omitempty"`
}

// Confirmed reports whether the signature reached confirmed or finalized commitment.
func (s SignatureStatus) Confirmed() bool {
	return s.ConfirmationStatus == string(rpc.ConfirmationStatusConfirmed) ||
		s.ConfirmationStatus == string(rpc.ConfirmationStatusFinalized)
}

// RequestAirdrop asks the cluster faucet for lamports to be sent to account.
func (c *Client) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.RequestAirdrop(ctx, account, lamports, c.commitment)
	c.observe("RequestAirdrop", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "airdrop request failed",
			"wallet", account.String(),
			"lamports", lamports,
			"error", err,
		)
		return solana.Signature{}, fmt.Errorf("request airdrop: %w", err)
	}
	c.logger.InfoContext(ctx, "airdrop requested",
		"wallet", account.String(),
		"lamports", lamports,
		"signature", sig.String(),
	)
	return sig, nil
}

// GetSignatureStatus returns the current status of sig. An unknown signature
// yields a zero ConfirmationStatus and no error.
func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (SignatureStatus, error) {
	status := SignatureStatus{Signature: sig.String()}

	start := time.Now()
	res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	c.observe("GetSignatureStatuses", start, err)
	if errors.Is(err, rpc.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("get signature status: %w", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return status, nil
	}

	v := res.Value[0]
	status.Slot = v.Slot
	status.ConfirmationStatus = string(v.ConfirmationStatus)
	if v.Err != nil {
		msg := fmt.Sprintf("%v", v.Err)
		status.Err = &msg
	}
	return status, nil
}

// AwaitConfirmation polls until sig is confirmed, fails on chain, or ctx is done.
func (c *Client) AwaitConfirmation(ctx context.Context, sig solana.Signature, interval time.Duration) (SignatureStatus, error) {
	if interval <= 0 {
		interval = DefaultConfirmPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.GetSignatureStatus(ctx, sig)
		if err != nil {
			// Transient RPC errors are retried until ctx expires.
			c.logger.WarnContext(ctx, "signature status poll failed",
				"signature", sig.String(),
				"error", err,
			)
		} else {
			if status.Err != nil {
				return status, fmt.Errorf("%w: %s", ErrTransactionFailed, *status.Err)
			}
			if status.Confirmed() {
				return status, nil
			}
		}

		select {
		case <-ctx.Done():
			return status, fmt.Errorf("waiting for confirmation of %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}
