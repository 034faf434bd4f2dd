package store

import (
	"sync" // Clock guard
	"time" // Timestamps

	"peerpay/internal/domain" // Domain models

	"github.com/google/uuid" // Record and account IDs
)

// NewAccountID returns a random opaque account ID
func NewAccountID() string {
	return uuid.NewString()
}

// NewRecordID returns a time-ordered record ID so ties on timestamp still sort by creation
func NewRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Clock hands out timestamps that never go backwards for one store
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock returns a Clock reading from now, or time.Now when now is nil
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Next returns max(now, previous) truncated to microseconds, which both MySQL and SQLite keep
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

// PrepareAccount fills the fields a new account gets from the store
func PrepareAccount(acc *domain.Account, clock *Clock) {
	acc.Identifier = domain.NormalizeIdentifier(acc.Identifier)
	if acc.ID == "" {
		acc.ID = NewAccountID()
	}
	if acc.Role == "" {
		acc.Role = domain.RoleUser
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = clock.Next()
	}
	acc.Balance = acc.Balance.Round(domain.AmountPlaces)
	acc.Version = 0
}
