// Package transfer moves funds between two accounts. Each transfer is one
// atomic unit against the store: fresh reads, validation, two version-checked
// balance writes and one ledger append. Concurrent updates to either account
// abort the unit and the whole sequence is retried a bounded number of times.
package transfer

import (
	"context"   // Cancellation
	"errors"    // Error matching
	"fmt"       // Error wrapping
	"math/rand" // Backoff jitter
	"time"      // Backoff durations

	"peerpay/internal/domain" // Domain models and error kinds
	"peerpay/internal/store"  // Store contracts

	"github.com/shopspring/decimal" // Fixed-point amounts
	"github.com/sirupsen/logrus"    // Structured logging
)

// Defaults used when no option overrides them
const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = 5 * time.Millisecond
)

// Publisher is notified once a transfer has committed
type Publisher interface {
	Publish(ctx context.Context, rec *domain.TransferRecord) error
}

// Engine executes transfers against a store
type Engine struct {
	store       store.Store
	directory   store.Directory
	publisher   Publisher
	log         logrus.FieldLogger
	maxAttempts int
	backoff     time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithDirectory resolves recipients through d instead of the store itself
func WithDirectory(d store.Directory) Option {
	return func(e *Engine) { e.directory = d }
}

// WithPublisher announces committed transfers to p
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaxAttempts bounds how many times a conflicting transfer is tried
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts. Zero disables waiting.
func WithBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.backoff = d
		}
	}
}

// New returns an Engine over s
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		directory:   s,
		log:         logrus.StandardLogger(),
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer moves amount from the initiator to the account claiming
// recipientIdentifier. Preconditions are checked in order and fail fast:
// amount, self-transfer, recipient resolution, then funds inside the unit.
func (e *Engine) Transfer(ctx context.Context, initiatorID, recipientIdentifier string, amount decimal.Decimal) (*domain.TransferRecord, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	initiator, err := e.store.GetAccount(ctx, initiatorID)
	if err != nil {
		return nil, fmt.Errorf("load initiator: %w", err)
	}
	if domain.NormalizeIdentifier(recipientIdentifier) == initiator.Identifier {
		return nil, domain.ErrSelfTransfer
	}

	recipient, err := e.directory.Resolve(ctx, recipientIdentifier)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return nil, domain.ErrRecipientNotFound
	case err != nil:
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}
	if recipient.ID == initiator.ID {
		return nil, domain.ErrSelfTransfer
	}

	fields := logrus.Fields{
		"from_account_id": initiator.ID,                            // Sender account ID
		"to_account_id":   recipient.ID,                            // Recipient account ID
		"amount":          amount.StringFixed(domain.AmountPlaces), // Transfer amount
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		rec, err := e.execute(ctx, initiator.ID, recipient.ID, amount)
		if err == nil {
			e.log.WithFields(fields).WithFields(logrus.Fields{
				"transfer_id": rec.ID,
				"attempt":     attempt,
			}).Info("Transfer committed")
			e.publish(ctx, rec)
			return rec, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		e.log.WithFields(fields).WithField("attempt", attempt).Debug("Transfer conflicted, retrying")
		if attempt < e.maxAttempts {
			if err := e.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	e.log.WithFields(fields).WithField("attempts", e.maxAttempts).Warn("Transfer abandoned under contention")
	return nil, fmt.Errorf("%w (%d attempts)", domain.ErrContention, e.maxAttempts)
}

// execute runs one read-validate-write unit
func (e *Engine) execute(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*domain.TransferRecord, error) {
	var rec *domain.TransferRecord
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		sender, err := tx.GetAccount(ctx, fromID)
		if err != nil {
			return err
		}
		receiver, err := tx.GetAccount(ctx, toID)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrRecipientNotFound
		}
		if err != nil {
			return err
		}
		// Same snapshot as the writes below
		if sender.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}
		if _, err := tx.ApplyDelta(ctx, sender.ID, amount.Neg(), sender.Version); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, receiver.ID, amount, receiver.Version); err != nil {
			return err
		}
		rec = &domain.TransferRecord{
			FromAccountID:   sender.ID,
			ToAccountID:     receiver.ID,
			FromDisplayName: sender.DisplayName,
			ToDisplayName:   receiver.DisplayName,
			Amount:          amount,
			Type:            domain.TypeTransfer,
		}
		_, err = tx.Append(ctx, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// wait sleeps a linearly growing, jittered delay or until ctx is done
func (e *Engine) wait(ctx context.Context, attempt int) error {
	if e.backoff == 0 {
		return ctx.Err()
	}
	d := e.backoff*time.Duration(attempt) + time.Duration(rand.Int63n(int64(e.backoff)))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// publish never fails a committed transfer
func (e *Engine) publish(ctx context.Context, rec *domain.TransferRecord) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, rec); err != nil {
		e.log.WithFields(logrus.Fields{
			"transfer_id": rec.ID,
			"error":       err.Error(),
		}).Warn("Failed to publish transfer")
	}
}
