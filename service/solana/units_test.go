package solana

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		decimals uint8
		want     uint64
		wantErr  error
	}{
		{name: "1.5 SOL", amount: 1.5, decimals: 9, want: 1_500_000_000},
		{name: "2.5 of a 6-decimal token", amount: 2.5, decimals: 6, want: 2_500_000},
		{name: "0.1 SOL float noise rounds away", amount: 0.1, decimals: 9, want: 100_000_000},
		{name: "rounds half away from zero", amount: 2.5, decimals: 0, want: 3},
		{name: "zero decimals rounds", amount: 2.4, decimals: 0, want: 2},
		{name: "one lamport", amount: 0.000000001, decimals: 9, want: 1},
		{name: "zero", amount: 0, decimals: 9, wantErr: ErrInvalidAmount},
		{name: "negative", amount: -3, decimals: 9, wantErr: ErrInvalidAmount},
		{name: "NaN", amount: math.NaN(), decimals: 9, wantErr: ErrInvalidAmount},
		{name: "infinity", amount: math.Inf(1), decimals: 9, wantErr: ErrInvalidAmount},
		{name: "below one base unit", amount: 0.0000000004, decimals: 9, wantErr: ErrAmountTooSmall},
		{name: "overflow", amount: 1e11, decimals: 9, wantErr: ErrAmountTooLarge},
		{name: "absurd decimals", amount: 1, decimals: 30, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.amount, tt.decimals)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSOLToLamports(t *testing.T) {
	lamports, err := SOLToLamports(1.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), lamports)
}

func TestFromBaseUnits(t *testing.T) {
	assert.InDelta(t, 1.5, LamportsToSOL(1_500_000_000), 1e-12)
	assert.InDelta(t, 2.5, FromBaseUnits(2_500_000, 6), 1e-12)
	assert.Equal(t, float64(7), FromBaseUnits(7, 0))
}
