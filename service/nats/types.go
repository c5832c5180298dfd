package nats

import (
	"fmt"
	"time"

	"github.com/brojonat/solwallet/service/db"
)

// Event kinds
const (
	EventTransferPrepared = "transfer.prepared"
	EventAirdropRequested = "airdrop.requested"
	EventAirdropConfirmed = "airdrop.confirmed"
	EventAirdropFailed    = "airdrop.failed"
)

// WalletEvent is published to the subject "wallet.{address}" whenever the
// service prepares a transfer or processes an airdrop for that address.
type WalletEvent struct {
	ID         string    `json:"id,omitempty"`
	Kind       string    `json:"kind"`
	Address    string    `json:"address"`
	Network    string    `json:"network"`
	Signature  string    `json:"signature,omitempty"`
	Mint       string    `json:"mint,omitempty"`
	Amount     float64   `json:"amount"`
	BaseUnits  uint64    `json:"base_units"`
	Recipient  string    `json:"recipient,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Subject returns the NATS subject for an address.
func Subject(address string) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, address)
}

// FromActivity converts a stored activity into an event of the given kind.
func FromActivity(kind string, a *db.Activity) *WalletEvent {
	event := &WalletEvent{
		ID:         a.ID.String(),
		Kind:       kind,
		Address:    a.Address,
		Network:    a.Network,
		Amount:     a.Amount,
		Status:     a.Status,
		OccurredAt: a.UpdatedAt,
	}
	if a.BaseUnits > 0 {
		event.BaseUnits = uint64(a.BaseUnits)
	}
	if a.Signature != nil {
		event.Signature = *a.Signature
	}
	if a.Mint != nil {
		event.Mint = *a.Mint
	}
	if a.Recipient != nil {
		event.Recipient = *a.Recipient
	}
	if a.Error != nil {
		event.Error = *a.Error
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return event
}
