package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/brojonat/solwallet/service/db"
	"github.com/brojonat/solwallet/service/wallet"
)

var a *Activities // for type-safe activity invocation

// AirdropWorkflow requests devnet SOL for a wallet and follows the request
// through confirmation.
//
// The workflow performs these steps:
// 1. Request the airdrop from the faucet (RequestAirdrop)
// 2. Record the request in the activity log (RecordAirdrop)
// 3. Wait for the signature to confirm (AwaitAirdropConfirmation)
// 4. Record the final status (RecordAirdrop)
//
// A confirmation that never arrives marks the airdrop failed rather than
// failing the workflow; only a rejected faucet request fails it.
func AirdropWorkflow(ctx workflow.Context, input AirdropInput) (*wallet.AirdropResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("AirdropWorkflow started", "address", input.Address, "sol", input.SOL)

	requestCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeInvalidAirdrop},
		},
	})

	var result *wallet.AirdropResult
	if err := workflow.ExecuteActivity(requestCtx, a.RequestAirdrop, input).Get(ctx, &result); err != nil {
		logger.Error("airdrop request failed", "address", input.Address, "error", err)
		return nil, fmt.Errorf("failed to request airdrop: %w", err)
	}
	result.WorkflowID = workflow.GetInfo(ctx).WorkflowExecution.ID
	logger.Info("airdrop requested", "address", input.Address, "signature", result.Signature)

	recordCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})
	result = record(ctx, recordCtx, result)

	confirmCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	var confirmed *wallet.AirdropResult
	err := workflow.ExecuteActivity(confirmCtx, a.AwaitAirdropConfirmation, result).Get(ctx, &confirmed)
	if err != nil {
		logger.Warn("airdrop confirmation failed", "signature", result.Signature, "error", err)
		failed := *result
		failed.Status = db.StatusFailed
		failed.Error = fmt.Sprintf("confirmation failed: %v", err)
		confirmed = &failed
	}

	result = record(ctx, recordCtx, confirmed)

	logger.Info("AirdropWorkflow completed",
		"address", result.Address,
		"signature", result.Signature,
		"status", result.Status,
	)
	return result, nil
}

// record runs RecordAirdrop and keeps the input when recording fails.
func record(ctx, recordCtx workflow.Context, result *wallet.AirdropResult) *wallet.AirdropResult {
	var recorded *wallet.AirdropResult
	if err := workflow.ExecuteActivity(recordCtx, a.RecordAirdrop, result).Get(ctx, &recorded); err != nil || recorded == nil {
		workflow.GetLogger(ctx).Warn("failed to record airdrop", "signature", result.Signature, "error", err)
		return result
	}
	return recorded
}
