package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwallet/service/db"
	"github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/solana"
)

func testSignature() solanago.Signature {
	var sig solanago.Signature
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	return sig
}

func TestService_Airdrop_Confirmed(t *testing.T) {
	addr := newKey().String()
	sig := testSignature()
	chain := &mockChain{
		airdropSig:    sig,
		confirmStatus: solana.SignatureStatus{Signature: sig.String(), ConfirmationStatus: "confirmed"},
	}
	store := newMemoryStore()
	pub := nats.NewMockPublisher()
	svc := newTestService(chain, store, pub)

	result, err := svc.Airdrop(context.Background(), addr, 1)
	require.NoError(t, err)

	assert.Equal(t, sig.String(), result.Signature)
	assert.Equal(t, uint64(1_000_000_000), chain.lastLamports)
	assert.Equal(t, db.StatusConfirmed, result.Status)
	assert.Equal(t, ExplorerURL(sig.String(), "devnet"), result.ExplorerURL)

	// One row, inserted as requested and updated to confirmed.
	activities, err := store.ListActivityByAddress(context.Background(), db.ListActivityParams{Address: addr})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, result.ActivityID, activities[0].ID.String())
	assert.Equal(t, db.StatusConfirmed, activities[0].Status)

	events := pub.EventsForAddress(addr)
	require.Len(t, events, 2)
	assert.Equal(t, nats.EventAirdropRequested, events[0].Kind)
	assert.Equal(t, nats.EventAirdropConfirmed, events[1].Kind)
}

func TestService_Airdrop_FailedOnChain(t *testing.T) {
	msg := "InstructionError"
	chain := &mockChain{
		airdropSig:    testSignature(),
		confirmStatus: solana.SignatureStatus{Err: &msg},
		confirmErr:    solana.ErrTransactionFailed,
	}
	pub := nats.NewMockPublisher()
	svc := newTestService(chain, nil, pub)

	result, err := svc.Airdrop(context.Background(), newKey().String(), 0.5)
	assert.ErrorIs(t, err, solana.ErrTransactionFailed)
	require.NotNil(t, result)
	assert.Equal(t, db.StatusFailed, result.Status)
	assert.NotEmpty(t, result.Error)

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, nats.EventAirdropFailed, events[1].Kind)
}

func TestService_Airdrop_Timeout(t *testing.T) {
	chain := &mockChain{airdropSig: testSignature(), confirmWait: true}
	svc := newTestService(chain, nil, nil)
	svc.opts.ConfirmTimeout = 20 * time.Millisecond

	result, err := svc.Airdrop(context.Background(), newKey().String(), 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, result)
	assert.Equal(t, db.StatusFailed, result.Status)
}

func TestService_Airdrop_Validation(t *testing.T) {
	addr := newKey().String()
	tests := []struct {
		name    string
		address string
		sol     float64
		wantErr error
	}{
		{name: "invalid address", address: "bad address", sol: 1, wantErr: solana.ErrInvalidAddress},
		{name: "zero", address: addr, sol: 0, wantErr: solana.ErrInvalidAmount},
		{name: "negative", address: addr, sol: -1, wantErr: solana.ErrInvalidAmount},
		{name: "over cap", address: addr, sol: 2.5, wantErr: ErrAirdropTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &mockChain{airdropSig: testSignature()}
			svc := newTestService(chain, nil, nil)
			_, err := svc.Airdrop(context.Background(), tt.address, tt.sol)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, chain.lastLamports)
		})
	}
}

func TestService_Airdrop_RequestError(t *testing.T) {
	pub := nats.NewMockPublisher()
	svc := newTestService(&mockChain{airdropErr: errors.New("faucet rate limited")}, nil, pub)

	result, err := svc.Airdrop(context.Background(), newKey().String(), 1)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, pub.Events())
}

func TestService_ConfirmAirdrop_InvalidSignature(t *testing.T) {
	svc := newTestService(&mockChain{}, nil, nil)
	_, err := svc.ConfirmAirdrop(context.Background(), "not-a-signature")
	assert.Error(t, err)
}

func TestService_RecordAirdrop_WorkflowID(t *testing.T) {
	addr := newKey().String()
	store := newMemoryStore()
	svc := newTestService(&mockChain{}, store, nil)

	durable := &AirdropResult{Address: addr, SOL: 1, Signature: "sig1", Status: db.StatusRequested, WorkflowID: "airdrop-abc"}
	svc.RecordAirdrop(context.Background(), durable)
	inline := &AirdropResult{Address: addr, SOL: 1, Signature: "sig2", Status: db.StatusRequested}
	svc.RecordAirdrop(context.Background(), inline)

	activities, err := store.ListActivityByAddress(context.Background(), db.ListActivityParams{Address: addr})
	require.NoError(t, err)
	require.Len(t, activities, 2)
	byID := map[string]*db.Activity{}
	for _, a := range activities {
		byID[a.ID.String()] = a
	}

	require.Contains(t, byID, durable.ActivityID)
	require.NotNil(t, byID[durable.ActivityID].WorkflowID)
	assert.Equal(t, "airdrop-abc", *byID[durable.ActivityID].WorkflowID)

	require.Contains(t, byID, inline.ActivityID)
	assert.Nil(t, byID[inline.ActivityID].WorkflowID)
}

func TestNewService_CapsConfirmTimeout(t *testing.T) {
	svc := NewService(&mockChain{}, nil, nil, nil, testLogger(), Options{ConfirmTimeout: 5 * time.Minute})
	assert.Equal(t, MaxConfirmTimeout, svc.opts.ConfirmTimeout)
	assert.Less(t, MaxConfirmTimeout, InlineAirdropTimeout)

	svc = NewService(&mockChain{}, nil, nil, nil, testLogger(), Options{})
	assert.Equal(t, 60*time.Second, svc.opts.ConfirmTimeout)
}
