package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRecordActivity(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	t.Run("transfer", func(t *testing.T) {
		a, err := store.RecordActivity(ctx, RecordActivityParams{
			Address:   "sender111",
			Network:   "devnet",
			Kind:      KindTransfer,
			Mint:      strPtr("So11111111111111111111111111111111111111112"),
			Amount:    1.5,
			BaseUnits: 1_500_000_000,
			Recipient: strPtr("recipient111"),
			Status:    StatusPrepared,
		})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, a.ID)
		assert.Equal(t, "sender111", a.Address)
		assert.Equal(t, KindTransfer, a.Kind)
		assert.Equal(t, 1.5, a.Amount)
		assert.Equal(t, int64(1_500_000_000), a.BaseUnits)
		require.NotNil(t, a.Recipient)
		assert.Equal(t, "recipient111", *a.Recipient)
		assert.Nil(t, a.Signature)
		assert.Nil(t, a.Error)
		assert.WithinDuration(t, time.Now(), a.CreatedAt, 5*time.Second)
	})

	t.Run("explicit id", func(t *testing.T) {
		id := uuid.New()
		a, err := store.RecordActivity(ctx, RecordActivityParams{
			ID:         id,
			Address:    "wallet222",
			Network:    "devnet",
			Kind:       KindAirdrop,
			Amount:     1,
			BaseUnits:  1_000_000_000,
			Status:     StatusRequested,
			WorkflowID: strPtr("airdrop-abc"),
		})
		require.NoError(t, err)
		assert.Equal(t, id, a.ID)
		require.NotNil(t, a.WorkflowID)
		assert.Equal(t, "airdrop-abc", *a.WorkflowID)
	})
}

func TestUpdateActivityStatus(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	a, err := store.RecordActivity(ctx, RecordActivityParams{
		Address: "wallet333", Network: "devnet", Kind: KindAirdrop,
		Amount: 1, BaseUnits: 1_000_000_000, Status: StatusRequested,
	})
	require.NoError(t, err)

	updated, err := store.UpdateActivityStatus(ctx, UpdateActivityStatusParams{
		ID: a.ID, Status: StatusConfirmed, Signature: strPtr("sig333"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	require.NotNil(t, updated.Signature)
	assert.Equal(t, "sig333", *updated.Signature)
	assert.False(t, updated.UpdatedAt.Before(a.UpdatedAt))

	// nil signature keeps the stored one
	failed, err := store.UpdateActivityStatus(ctx, UpdateActivityStatusParams{
		ID: a.ID, Status: StatusFailed, Error: strPtr("timeout"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sig333", *failed.Signature)
	assert.Equal(t, "timeout", *failed.Error)

	_, err = store.UpdateActivityStatus(ctx, UpdateActivityStatusParams{ID: uuid.New(), Status: StatusFailed})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.True(t, IsNotFound(err))
}

func TestListActivityByAddress(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	for i := range 5 {
		_, err := store.RecordActivity(ctx, RecordActivityParams{
			Address: "wallet444", Network: "devnet", Kind: KindTransfer,
			Amount: float64(i + 1), BaseUnits: int64(i + 1), Status: StatusPrepared,
		})
		require.NoError(t, err)
	}
	_, err := store.RecordActivity(ctx, RecordActivityParams{
		Address: "someone-else", Network: "devnet", Kind: KindTransfer, Amount: 9, BaseUnits: 9, Status: StatusPrepared,
	})
	require.NoError(t, err)

	page, err := store.ListActivityByAddress(ctx, ListActivityParams{Address: "wallet444", Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, 5.0, page[0].Amount, "newest first")

	rest, err := store.ListActivityByAddress(ctx, ListActivityParams{Address: "wallet444", Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	none, err := store.ListActivityByAddress(ctx, ListActivityParams{Address: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestGetActivity(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()
	a, err := store.RecordActivity(ctx, RecordActivityParams{
		Address: "wallet555", Network: "devnet", Kind: KindTransfer, Amount: 1, BaseUnits: 1, Status: StatusPrepared,
	})
	require.NoError(t, err)

	got, err := store.GetActivity(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = store.GetActivity(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
}
