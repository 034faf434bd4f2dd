package history

import (
	"context" // Watch lifetime
	"time"    // Refresh retry

	"peerpay/internal/domain" // Domain models
	"peerpay/internal/feed"   // Change notifications
	"peerpay/internal/store"  // Ledger reads

	"github.com/sirupsen/logrus" // Logging
)

// Subscriber hands out change notifications per account
type Subscriber interface {
	Subscribe(accountID string) *feed.Subscription
}

// Projector serves merged history views. It holds no authoritative state:
// every view is rebuilt from the ledger and may be recomputed at will.
type Projector struct {
	ledger store.LedgerStore
	feed   Subscriber
	log    logrus.FieldLogger
	retry  time.Duration // Delay before a failed refresh is tried again
}

// RefreshRetryDelay is how long a watch waits to re-read a direction whose
// refresh failed
const RefreshRetryDelay = time.Second

// NewProjector returns a Projector reading from ledger and listening on sub
func NewProjector(ledger store.LedgerStore, sub Subscriber, log logrus.FieldLogger) *Projector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Projector{ledger: ledger, feed: sub, log: log, retry: RefreshRetryDelay}
}

// Snapshot returns the current merged history of accountID
func (p *Projector) Snapshot(ctx context.Context, accountID string) ([]domain.HistoryEntry, error) {
	sent, err := p.ledger.QueryByAccount(ctx, accountID, domain.DirectionOut)
	if err != nil {
		return nil, err
	}
	received, err := p.ledger.QueryByAccount(ctx, accountID, domain.DirectionIn)
	if err != nil {
		return nil, err
	}
	return Merge(accountID, sent, received), nil
}

// Watch streams the merged history of accountID, emitting the full list
// first and again after every change to either stream. A slow reader only
// ever sees the latest list. The channel closes when ctx ends; calling
// Watch again starts over from the ledger.
func (p *Projector) Watch(ctx context.Context, accountID string) (<-chan []domain.HistoryEntry, error) {
	// Subscribe before the first read so no commit falls between them
	sub := p.feed.Subscribe(accountID)
	v := NewView(accountID)
	for _, dir := range []domain.Direction{domain.DirectionOut, domain.DirectionIn} {
		if err := p.load(ctx, v, dir); err != nil {
			sub.Close()
			return nil, err
		}
	}

	out := make(chan []domain.HistoryEntry, 1)
	out <- v.Entries()
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.C():
			}
			changed := false
			for _, dir := range sub.Pending() {
				if err := p.load(ctx, v, dir); err != nil {
					// Keep the last good entries for this direction and read it again later
					p.log.WithFields(logrus.Fields{
						"account_id": accountID,
						"direction":  dir,
						"error":      err.Error(),
					}).Warn("Failed to refresh history")
					time.AfterFunc(p.retry, func() { sub.Requeue(dir) })
					continue
				}
				changed = true
			}
			if changed {
				emitLatest(ctx, out, v.Entries())
			}
		}
	}()
	return out, nil
}

func (p *Projector) load(ctx context.Context, v *View, dir domain.Direction) error {
	recs, err := p.ledger.QueryByAccount(ctx, v.accountID, dir)
	if err != nil {
		return err
	}
	v.Apply(dir, recs)
	return nil
}

// emitLatest replaces an unread list with entries
func emitLatest(ctx context.Context, out chan []domain.HistoryEntry, entries []domain.HistoryEntry) {
	select {
	case out <- entries:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- entries:
	case <-ctx.Done():
	}
}
