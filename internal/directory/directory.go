// Package directory resolves recipients, caching identifier to account ID
// mappings. Identifiers are bound once at registration, so the mapping can
// be cached; the account itself is always read fresh from the store.
package directory

import (
	"context" // Request scoping
	"errors"  // Error matching
	"time"    // Cache TTL

	"peerpay/internal/cache"  // Cache helpers
	"peerpay/internal/domain" // Domain models
	"peerpay/internal/store"  // Store contracts

	"github.com/sirupsen/logrus" // Logging
)

// Resolver is a read-through cache in front of a store.Directory
type Resolver struct {
	dir      store.Directory
	accounts store.AccountStore
	cache    cache.Cache
	ttl      time.Duration
}

var _ store.Directory = (*Resolver)(nil)

// New returns a Resolver over dir that loads hits from accounts
func New(dir store.Directory, accounts store.AccountStore, c cache.Cache, ttl time.Duration) *Resolver {
	return &Resolver{dir: dir, accounts: accounts, cache: c, ttl: ttl}
}

// Resolve returns the account claiming identifier
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*domain.Account, error) {
	key := cache.DirectoryKey(domain.NormalizeIdentifier(identifier))

	var id string
	found, err := r.cache.Get(ctx, key, &id)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Debug("Directory cache read failed")
	}
	if found && err == nil {
		acc, err := r.accounts.GetAccount(ctx, id)
		if err == nil {
			return acc, nil
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		// Stale entry, fall through to the directory
		_ = r.cache.Delete(ctx, key)
	}

	acc, err := r.dir.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, key, acc.ID, r.ttl) // Cache the mapping for future lookups
	return acc, nil
}
