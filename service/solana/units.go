package solana

import (
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
)

// SOLDecimals is the number of decimal places of native SOL.
const SOLDecimals uint8 = 9

// maxDecimals bounds the scale factor; SPL mints use a u8 but nothing real goes past 19.
const maxDecimals = 19

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooSmall = errors.New("amount rounds to zero base units")
	ErrAmountTooLarge = errors.New("amount exceeds the maximum representable base units")
)

// SOLToLamports converts a SOL amount to lamports, rounding half away from zero.
func SOLToLamports(sol float64) (uint64, error) {
	return ToBaseUnits(sol, SOLDecimals)
}

// ToBaseUnits converts a human-readable amount into integer base units:
// round(amount * 10^decimals).
func ToBaseUnits(amount float64, decimals uint8) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero, got %v", ErrInvalidAmount, amount)
	}
	if decimals > maxDecimals {
		return 0, fmt.Errorf("%w: unsupported decimals %d", ErrInvalidAmount, decimals)
	}

	scaled := math.Round(amount * math.Pow10(int(decimals)))
	// float64(math.MaxUint64) rounds up to 2^64, so >= is the correct bound.
	if scaled >= float64(math.MaxUint64) {
		return 0, fmt.Errorf("%w: %v with %d decimals", ErrAmountTooLarge, amount, decimals)
	}
	if scaled < 1 {
		return 0, fmt.Errorf("%w: %v with %d decimals", ErrAmountTooSmall, amount, decimals)
	}
	return uint64(scaled), nil
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}

// FromBaseUnits converts integer base units to a human-readable amount.
func FromBaseUnits(units uint64, decimals uint8) float64 {
	return float64(units) / math.Pow10(int(decimals))
}
