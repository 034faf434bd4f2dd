package domain

import (
	"time" // Server-assigned timestamps

	"github.com/shopspring/decimal" // Fixed-point amounts
)

// TransferType tags a ledger record
type TransferType string

// TypeTransfer is the only record type produced by the transfer engine
const TypeTransfer TransferType = "transfer"

// Direction of a record relative to an account
type Direction string

const (
	DirectionOut Direction = "out" // Account sent the funds
	DirectionIn  Direction = "in"  // Account received the funds
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// TransferRecord Model, immutable once appended
type TransferRecord struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`                  // Assigned on append
	FromAccountID   string          `gorm:"index;size:36;not null" json:"from_account_id"` // Sender
	ToAccountID     string          `gorm:"index;size:36;not null" json:"to_account_id"`   // Receiver
	FromDisplayName string          `gorm:"size:255" json:"from_display_name"`             // Snapshot at transfer time
	ToDisplayName   string          `gorm:"size:255" json:"to_display_name"`               // Snapshot at transfer time
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`     // Always positive
	Timestamp       time.Time       `gorm:"index;precision:6;not null" json:"timestamp"`   // Server-assigned
	Type            TransferType    `gorm:"size:32;not null" json:"type"`                  // "transfer"
}

// Validate rejects records that are missing fields or break the record invariants.
// ID and Timestamp are checked only once the record has been appended.
func (r *TransferRecord) Validate(appended bool) error {
	switch {
	case r.FromAccountID == "":
		return malformed("transfer", "from_account_id")
	case r.ToAccountID == "":
		return malformed("transfer", "to_account_id")
	case r.FromAccountID == r.ToAccountID:
		return ErrSelfTransfer
	case !r.Amount.IsPositive():
		return ErrInvalidAmount
	case r.Type == "":
		return malformed("transfer", "type")
	case appended && r.ID == "":
		return malformed("transfer", "id")
	case appended && r.Timestamp.IsZero():
		return malformed("transfer", "timestamp")
	}
	return nil
}

// DirectionFor tags the record relative to accountID
func (r *TransferRecord) DirectionFor(accountID string) Direction {
	if r.FromAccountID == accountID {
		return DirectionOut
	}
	return DirectionIn
}

// Counterparty returns the other side of the record relative to accountID
func (r *TransferRecord) Counterparty(accountID string) (id, name string) {
	if r.FromAccountID == accountID {
		return r.ToAccountID, r.ToDisplayName
	}
	return r.FromAccountID, r.FromDisplayName
}

// HistoryEntry is a TransferRecord as seen by one participant
type HistoryEntry struct {
	TransferRecord
	Direction Direction `json:"direction"` // in or out
}
