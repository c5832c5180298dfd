package temporal

import (
	"context"
	"errors"

	"github.com/brojonat/solwallet/service/wallet"
)

// ErrAirdropNotFound is returned when no airdrop workflow has the given ID.
var ErrAirdropNotFound = errors.New("airdrop workflow not found")

// AirdropStarter starts durable airdrops and reports on them.
// Each airdrop runs as one AirdropWorkflow execution.
type AirdropStarter interface {
	// StartAirdrop starts an AirdropWorkflow and returns its workflow ID.
	StartAirdrop(ctx context.Context, input AirdropInput) (string, error)

	// GetAirdropStatus describes the workflow and, once it has completed,
	// includes its result.
	GetAirdropStatus(ctx context.Context, workflowID string) (*AirdropStatus, error)
}

// AirdropStatus is the externally visible state of an airdrop workflow.
type AirdropStatus struct {
	WorkflowID string                `json:"workflow_id"`
	Status     string                `json:"status"` // running, completed, failed, canceled, terminated, timed_out
	Result     *wallet.AirdropResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
}
