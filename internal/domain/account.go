package domain

import (
	"strings" // Identifier normalization
	"time"    // Creation timestamps

	"github.com/shopspring/decimal" // Fixed-point balances
)

// Roles an account can hold
const (
	RoleUser  = "user"  // Regular account holder
	RoleAdmin = "admin" // May list the whole ledger
)

// Account Model
type Account struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`                    // Opaque, never reused
	Identifier  string          `gorm:"uniqueIndex;size:255;not null" json:"identifier"` // Lowercase email
	DisplayName string          `gorm:"size:255;not null" json:"display_name"`           // Mutable display name
	Password    string          `gorm:"not null" json:"-"`                               // Hashed password
	Role        string          `gorm:"size:16;default:user" json:"-"`                   // Role: user or admin
	Balance     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance"`      // Never negative
	Version     int64           `gorm:"not null;default:0" json:"-"`                     // Optimistic lock counter
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`                      // Immutable
}

// NormalizeIdentifier lowercases and trims an identifier for lookup and storage
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Validate rejects accounts missing any required field
func (a *Account) Validate() error {
	switch {
	case a.ID == "":
		return malformed("account", "id")
	case a.Identifier == "":
		return malformed("account", "identifier")
	case a.DisplayName == "":
		return malformed("account", "display_name")
	case a.Balance.IsNegative():
		return malformed("account", "balance")
	case a.CreatedAt.IsZero():
		return malformed("account", "created_at")
	}
	return nil
}

// Clone returns a copy detached from store internals
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
