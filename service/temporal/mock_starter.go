package temporal

import (
	"context"
	"fmt"
	"sync"
)

// MockAirdropStarter is an in-memory AirdropStarter for testing.
type MockAirdropStarter struct {
	mu       sync.Mutex
	started  map[string]AirdropInput
	statuses map[string]*AirdropStatus
	startErr error
	seq      int
}

// NewMockAirdropStarter creates a new MockAirdropStarter.
func NewMockAirdropStarter() *MockAirdropStarter {
	return &MockAirdropStarter{
		started:  make(map[string]AirdropInput),
		statuses: make(map[string]*AirdropStatus),
	}
}

// StartAirdrop records the input and reports the workflow as running.
func (m *MockAirdropStarter) StartAirdrop(ctx context.Context, input AirdropInput) (string, error) {
	if m.startErr != nil {
		return "", m.startErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	id := fmt.Sprintf("airdrop-%s-%d", input.Address, m.seq)
	m.started[id] = input
	m.statuses[id] = &AirdropStatus{WorkflowID: id, Status: StatusRunning}
	return id, nil
}

// GetAirdropStatus returns the recorded status or ErrAirdropNotFound.
func (m *MockAirdropStarter) GetAirdropStatus(ctx context.Context, workflowID string) (*AirdropStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[workflowID]
	if !ok {
		return nil, ErrAirdropNotFound
	}
	out := *status
	return &out, nil
}

// SetStatus overrides the status reported for workflowID.
func (m *MockAirdropStarter) SetStatus(status *AirdropStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[status.WorkflowID] = status
}

// SetStartError makes StartAirdrop fail.
func (m *MockAirdropStarter) SetStartError(err error) {
	m.startErr = err
}

// Started returns the inputs of every started airdrop keyed by workflow ID.
func (m *MockAirdropStarter) Started() map[string]AirdropInput {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]AirdropInput, len(m.started))
	for k, v := range m.started {
		out[k] = v
	}
	return out
}
