package wallet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brojonat/solwallet/service/solana"
)

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "", FormatAddress(""))
	assert.Equal(t, "short", FormatAddress("short"))
	assert.Equal(t, "0123456789", FormatAddress("0123456789"))
	assert.Equal(t, "7xKXtg...gAsU", FormatAddress("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"))
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		amount   float64
		decimals int
		want     string
	}{
		{2_500_000, 9, "2.50M"},
		{1_234, 9, "1.23K"},
		{0.001, 9, "0.00100000"},
		{0, 9, "0.00000000"},
		{1.23456789, 9, "1.2346"},
		{1.5, 2, "1.50"},
		{42, 0, "42"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%d", tt.amount, tt.decimals), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBalance(tt.amount, tt.decimals))
		})
	}
}

func TestExplorerURL(t *testing.T) {
	assert.Equal(t, "https://explorer.solana.com/tx/abc?cluster=devnet", ExplorerURL("abc", "devnet"))
	assert.Equal(t, "https://explorer.solana.com/tx/abc", ExplorerURL("abc", ""))
}

func TestFriendlyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"insufficient sentinel", fmt.Errorf("check: %w", ErrInsufficientBalance), "Insufficient funds for this transaction"},
		{"insufficient text", errors.New("Transfer: insufficient funds for rent"), "Insufficient funds for this transaction"},
		{"invalid address", fmt.Errorf("%w: recipient", solana.ErrInvalidAddress), "Invalid recipient address"},
		{"wallet", errors.New("wallet not connected"), "Wallet connection issue. Please reconnect and try again."},
		{"passthrough", errors.New("blockhash not found"), "blockhash not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FriendlyError(tt.err))
		})
	}
}
