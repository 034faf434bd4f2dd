// Package history projects the ledger into the merged, direction-tagged
// transaction list each participant sees.
package history

import (
	"sort" // Ordering

	"peerpay/internal/domain" // Domain models
)

// View is the merged history of one account, keyed by record ID
type View struct {
	accountID string
	entries   map[string]domain.HistoryEntry
}

// NewView returns an empty view for accountID
func NewView(accountID string) *View {
	return &View{accountID: accountID, entries: make(map[string]domain.HistoryEntry)}
}

// Apply replaces every entry of direction dir with records, leaving the
// other direction untouched. Records that do not belong to dir for this
// account are ignored.
func (v *View) Apply(dir domain.Direction, records []domain.TransferRecord) {
	for id, e := range v.entries {
		if e.Direction == dir {
			delete(v.entries, id)
		}
	}
	for _, r := range records {
		if r.DirectionFor(v.accountID) != dir {
			continue
		}
		if dir == domain.DirectionIn && r.ToAccountID != v.accountID {
			continue
		}
		v.entries[r.ID] = domain.HistoryEntry{TransferRecord: r, Direction: dir}
	}
}

// Len returns the number of entries
func (v *View) Len() int {
	return len(v.entries)
}

// Entries returns the merged history, newest first with ties broken by
// record ID descending.
func (v *View) Entries() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Merge builds the merged history from the two ledger streams in one go
func Merge(accountID string, sent, received []domain.TransferRecord) []domain.HistoryEntry {
	v := NewView(accountID)
	v.Apply(domain.DirectionOut, sent)
	v.Apply(domain.DirectionIn, received)
	return v.Entries()
}
