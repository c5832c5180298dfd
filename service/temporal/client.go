package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/brojonat/solwallet/service/wallet"
)

// Workflow status values reported by GetAirdropStatus.
const (
	StatusRunning    = "running"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
	StatusTerminated = "terminated"
	StatusTimedOut   = "timed_out"
	StatusUnknown    = "unknown"
)

// Client is a production implementation of AirdropStarter that talks to Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// AirdropWorkflowID returns a fresh workflow ID for an airdrop to address.
func AirdropWorkflowID(address string) string {
	return "airdrop-" + address + "-" + uuid.NewString()
}

// StartAirdrop starts an AirdropWorkflow on the configured task queue.
func (c *Client) StartAirdrop(ctx context.Context, input AirdropInput) (string, error) {
	id := AirdropWorkflowID(input.Address)

	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: c.taskQueue,
		Memo: map[string]interface{}{
			"address":    input.Address,
			"sol":        input.SOL,
			"created_by": "solwallet",
		},
	}, AirdropWorkflow, input)
	if err != nil {
		c.logger.Error("failed to start airdrop workflow",
			"address", input.Address,
			"workflow_id", id,
			"error", err,
		)
		return "", fmt.Errorf("failed to start airdrop workflow %q: %w", id, err)
	}

	c.logger.Info("airdrop workflow started",
		"address", input.Address,
		"sol", input.SOL,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return run.GetID(), nil
}

// GetAirdropStatus describes an airdrop workflow. Completed workflows carry
// their result; failed ones carry the failure message.
func (c *Client) GetAirdropStatus(ctx context.Context, workflowID string) (*AirdropStatus, error) {
	desc, err := c.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, ErrAirdropNotFound
		}
		return nil, fmt.Errorf("failed to describe workflow %q: %w", workflowID, err)
	}

	out := &AirdropStatus{
		WorkflowID: workflowID,
		Status:     statusString(desc.GetWorkflowExecutionInfo().GetStatus()),
	}
	if out.Status == StatusRunning {
		return out, nil
	}

	var result wallet.AirdropResult
	if err := c.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
		out.Error = err.Error()
		return out, nil
	}
	out.Result = &result
	return out, nil
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

func statusString(s enumspb.WorkflowExecutionStatus) string {
	switch s {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return StatusRunning
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return StatusCompleted
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED:
		return StatusFailed
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return StatusCanceled
	case enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return StatusTerminated
	case enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return StatusTimedOut
	default:
		return StatusUnknown
	}
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
