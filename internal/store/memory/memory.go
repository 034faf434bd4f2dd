// Package memory is an in-process implementation of the store contracts.
// Transactions are optimistic: reads see the latest committed state, writes
// are staged and validated against account versions at commit.
package memory

import (
	"context" // Contract signature
	"sort"    // Newest-first listing
	"sync"    // Guards committed state

	"peerpay/internal/domain" // Domain models
	"peerpay/internal/store"  // Contracts

	"github.com/shopspring/decimal" // Fixed-point deltas
)

// Store keeps accounts and the ledger in memory
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	byIdentifier map[string][]string
	records      []domain.TransferRecord // Commit order
	clock        *store.Clock
}

var _ store.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		byIdentifier: make(map[string][]string),
		clock:        store.NewClock(nil),
	}
}

// Restore loads accounts and records as-is, without uniqueness checks.
// It is meant for importing an existing data set.
func (s *Store) Restore(accounts []*domain.Account, records []domain.TransferRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		cp := a.Clone()
		cp.Identifier = domain.NormalizeIdentifier(cp.Identifier)
		s.accounts[cp.ID] = cp
		s.byIdentifier[cp.Identifier] = append(s.byIdentifier[cp.Identifier], cp.ID)
	}
	s.records = append(s.records, records...)
}

// CreateAccount registers an account with a unique identifier
func (s *Store) CreateAccount(_ context.Context, acc *domain.Account) error {
	store.PrepareAccount(acc, s.clock)
	if err := acc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; ok {
		return domain.ErrIdentifierTaken
	}
	if len(s.byIdentifier[acc.Identifier]) > 0 {
		return domain.ErrIdentifierTaken
	}
	s.accounts[acc.ID] = acc.Clone()
	s.byIdentifier[acc.Identifier] = []string{acc.ID}
	return nil
}

// GetAccount returns a copy of the committed account
func (s *Store) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

// Resolve looks an identifier up case-insensitively
func (s *Store) Resolve(_ context.Context, identifier string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byIdentifier[domain.NormalizeIdentifier(identifier)]
	switch len(ids) {
	case 0:
		return nil, domain.ErrAccountNotFound
	case 1:
		return s.accounts[ids[0]].Clone(), nil
	default:
		return nil, domain.ErrDirectoryIntegrity
	}
}

// QueryByAccount returns the account's records in commit order
func (s *Store) QueryByAccount(_ context.Context, accountID string, dir domain.Direction) ([]domain.TransferRecord, error) {
	if !dir.Valid() {
		return nil, domain.ErrMalformedRecord
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.TransferRecord
	for _, r := range s.records {
		if (dir == domain.DirectionOut && r.FromAccountID == accountID) ||
			(dir == domain.DirectionIn && r.ToAccountID == accountID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// List returns a page of records, newest first
func (s *Store) List(_ context.Context, offset, limit int) ([]domain.TransferRecord, error) {
	s.mu.RLock()
	all := make([]domain.TransferRecord, len(s.records))
	copy(all, s.records)
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return all[i].ID > all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Count returns the number of committed records
func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// RunInTx stages fn's writes and commits them only if every touched
// account is still at the version fn read.
func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx := &memTx{s: s, staged: make(map[string]*staged)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range tx.staged {
		cur, ok := s.accounts[id]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if cur.Version != st.baseVersion {
			return domain.ErrVersionConflict
		}
	}
	for id, st := range tx.staged {
		s.accounts[id] = st.account.Clone()
	}
	for _, rec := range tx.appends {
		rec.Timestamp = s.clock.Next()
		s.records = append(s.records, *rec)
	}
	return nil
}

// staged is a pending balance write
type staged struct {
	baseVersion int64           // Committed version the write was computed from
	account     *domain.Account // Resulting account
}

type memTx struct {
	s       *Store
	staged  map[string]*staged
	appends []*domain.TransferRecord
}

func (tx *memTx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	if st, ok := tx.staged[id]; ok {
		return st.account.Clone(), nil
	}
	return tx.s.GetAccount(ctx, id)
}

func (tx *memTx) ApplyDelta(_ context.Context, id string, delta decimal.Decimal, expectedVersion int64) (*domain.Account, error) {
	base, pending := tx.staged[id]
	var cur *domain.Account
	baseVersion := expectedVersion
	if pending {
		cur = base.account.Clone()
		baseVersion = base.baseVersion
	} else {
		tx.s.mu.RLock()
		a, ok := tx.s.accounts[id]
		if ok {
			cur = a.Clone()
		}
		tx.s.mu.RUnlock()
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
	}
	if cur.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	next := cur.Balance.Add(delta)
	if next.IsNegative() {
		return nil, domain.ErrInsufficientFunds
	}
	cur.Balance = next
	cur.Version++
	tx.staged[id] = &staged{baseVersion: baseVersion, account: cur}
	return cur.Clone(), nil
}

func (tx *memTx) Append(_ context.Context, rec *domain.TransferRecord) (string, error) {
	if err := rec.Validate(false); err != nil {
		return "", err
	}
	rec.ID = store.NewRecordID()
	tx.appends = append(tx.appends, rec)
	return rec.ID, nil
}
