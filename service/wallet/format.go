package wallet

import (
	"errors"
	"strconv"
	"strings"

	"github.com/brojonat/solwallet/service/solana"
)

const explorerBaseURL = "https://explorer.solana.com/tx/"

// FormatAddress shortens an address to its first six and last four characters.
func FormatAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// FormatBalance renders amount compactly: millions and thousands get a suffix,
// dust gets eight decimals, everything else at most four.
func FormatBalance(amount float64, decimals int) string {
	switch {
	case amount >= 1_000_000:
		return strconv.FormatFloat(amount/1_000_000, 'f', 2, 64) + "M"
	case amount >= 1_000:
		return strconv.FormatFloat(amount/1_000, 'f', 2, 64) + "K"
	case amount < 0.01:
		return strconv.FormatFloat(amount, 'f', 8, 64)
	}
	if decimals > 4 {
		decimals = 4
	}
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(amount, 'f', decimals, 64)
}

// ExplorerURL links a transaction signature on the Solana explorer. An empty
// cluster links mainnet.
func ExplorerURL(signature, cluster string) string {
	if cluster == "" {
		return explorerBaseURL + signature
	}
	return explorerBaseURL + signature + "?cluster=" + cluster
}

// FriendlyError maps an error onto the message shown to wallet users.
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case errors.Is(err, ErrInsufficientBalance) || strings.Contains(msg, "insufficient funds"):
		return "Insufficient funds for this transaction"
	case errors.Is(err, solana.ErrInvalidAddress) || strings.Contains(msg, "invalid address"):
		return "Invalid recipient address"
	case strings.Contains(msg, "not connected") || strings.Contains(msg, "wallet"):
		return "Wallet connection issue. Please reconnect and try again."
	}
	return msg
}
