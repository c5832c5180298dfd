package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwallet/service/db"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "wallet.Abc123", Subject("Abc123"))
}

func TestFromActivity(t *testing.T) {
	sig := "5j7s6NiJ"
	mint := "So11111111111111111111111111111111111111112"
	recipient := "Recip1"
	updated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	a := &db.Activity{
		ID:        uuid.New(),
		Address:   "Sender1",
		Network:   "devnet",
		Kind:      db.KindTransfer,
		Signature: &sig,
		Mint:      &mint,
		Amount:    1.5,
		BaseUnits: 1_500_000_000,
		Recipient: &recipient,
		Status:    db.StatusPrepared,
		UpdatedAt: updated,
	}

	event := FromActivity(EventTransferPrepared, a)
	assert.Equal(t, a.ID.String(), event.ID)
	assert.Equal(t, EventTransferPrepared, event.Kind)
	assert.Equal(t, "Sender1", event.Address)
	assert.Equal(t, sig, event.Signature)
	assert.Equal(t, mint, event.Mint)
	assert.Equal(t, recipient, event.Recipient)
	assert.Equal(t, uint64(1_500_000_000), event.BaseUnits)
	assert.Equal(t, updated, event.OccurredAt)
	assert.Empty(t, event.Error)
}

func TestFromActivity_DefaultsTimestamp(t *testing.T) {
	event := FromActivity(EventAirdropRequested, &db.Activity{Address: "A", Status: db.StatusRequested})
	assert.WithinDuration(t, time.Now(), event.OccurredAt, 5*time.Second)
}

func TestMockPublisher(t *testing.T) {
	ctx := context.Background()
	m := NewMockPublisher()

	require.NoError(t, m.PublishEvent(ctx, &WalletEvent{Kind: EventAirdropConfirmed, Address: "A"}))
	require.NoError(t, m.PublishEvent(ctx, &WalletEvent{Kind: EventTransferPrepared, Address: "B"}))

	assert.Len(t, m.Events(), 2)
	assert.Len(t, m.EventsForAddress("A"), 1)

	m.SetPublishError(errors.New("nats down"))
	assert.Error(t, m.PublishEvent(ctx, &WalletEvent{Address: "A"}))
	assert.Len(t, m.Events(), 2)

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}
