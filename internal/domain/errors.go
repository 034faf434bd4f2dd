package domain

import (
	"errors" // Sentinel errors
	"fmt"    // Wrapping
)

// Error kinds surfaced by the transfer core. Callers match them with errors.Is.
var (
	ErrInvalidAmount      = errors.New("amount must be positive with at most two decimal places")
	ErrSelfTransfer       = errors.New("cannot transfer to yourself")
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrContention         = errors.New("transfer aborted after repeated concurrent updates")
	ErrVersionConflict    = errors.New("account version conflict")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrAccountNotFound    = errors.New("account not found")
	ErrIdentifierTaken    = errors.New("identifier already registered")
	ErrDirectoryIntegrity = errors.New("identifier resolves to more than one account")
	ErrMalformedRecord    = errors.New("malformed record")
)

// Unavailable wraps a driver or connectivity fault so it matches ErrStoreUnavailable
// while keeping the original cause reachable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func malformed(kind, field string) error {
	return fmt.Errorf("%w: %s missing or invalid %s", ErrMalformedRecord, kind, field)
}
