package api

import (
	"context"  // Cache calls
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"time"     // Time durations

	"peerpay/internal/cache"      // Cache helpers
	"peerpay/internal/domain"     // Domain models
	"peerpay/internal/middleware" // Authenticated account
	"peerpay/internal/store"      // Store contracts

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// AccountResponse is the presentation view of an account
type AccountResponse struct {
	ID          string    `json:"id"`           // Account ID
	Identifier  string    `json:"identifier"`   // Email
	DisplayName string    `json:"display_name"` // Display name
	Balance     string    `json:"balance"`      // Two-decimal balance
	CreatedAt   time.Time `json:"created_at"`   // Registration time
}

func toAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          acc.ID,
		Identifier:  acc.Identifier,
		DisplayName: acc.DisplayName,
		Balance:     acc.Balance.StringFixed(domain.AmountPlaces),
		CreatedAt:   acc.CreatedAt,
	}
}

// RecipientResponse is what a sender may learn about a recipient
type RecipientResponse struct {
	Identifier  string `json:"identifier"`   // Normalized email
	DisplayName string `json:"display_name"` // Display name
}

// cachedAccount is an account view stamped with the generation it was read under
type cachedAccount struct {
	Account    AccountResponse `json:"account"`    // Cached view
	Generation string          `json:"generation"` // Generation token at read time
}

// accountGeneration returns the current generation token of an account
func accountGeneration(ctx context.Context, c cache.Cache, accountID string) (string, error) {
	var gen string
	_, err := c.Get(ctx, cache.AccountGenerationKey(accountID), &gen)
	return gen, err
}

// invalidateAccounts moves each account to generation token. A view read
// before the change carries the old token and is ignored even if it is
// written back afterwards. Tokens outlive any view written under them.
func invalidateAccounts(ctx context.Context, c cache.Cache, ttl time.Duration, token string, accountIDs ...string) {
	for _, id := range accountIDs {
		if err := c.Set(ctx, cache.AccountGenerationKey(id), token, 2*ttl); err != nil {
			logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Warn("Failed to bump account generation")
		}
		_ = c.Delete(ctx, cache.AccountKey(id))
	}
}

// GetAccountHandler returns the authenticated account. The view is cached;
// transfers never read it.
func GetAccountHandler(accounts store.AccountStore, c cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		reqCtx := ctx.Request.Context()
		accountID := middleware.AccountID(ctx)
		cacheKey := cache.AccountKey(accountID) // Cache key for account

		// Read the generation before the store so a concurrent transfer invalidates this read
		gen, genErr := accountGeneration(reqCtx, c, accountID)
		if genErr == nil {
			var entry cachedAccount
			found, err := c.Get(reqCtx, cacheKey, &entry) // Try to get from cache
			if err == nil && found && entry.Generation == gen {
				ctx.JSON(http.StatusOK, gin.H{"account": entry.Account, "cached": true})
				return
			}
		}
		acc, err := accounts.GetAccount(reqCtx, accountID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		view := toAccountResponse(acc)
		if genErr == nil {
			_ = c.Set(reqCtx, cacheKey, cachedAccount{Account: view, Generation: gen}, ttl) // Cache the account view
		}
		ctx.JSON(http.StatusOK, gin.H{"account": view, "cached": false})
	}
}

// ResolveRecipientHandler looks a recipient up before a transfer is sent
func ResolveRecipientHandler(dir store.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.Query("identifier")
		if identifier == "" {
			badRequest(c, "identifier is required")
			return
		}
		acc, err := dir.Resolve(c.Request.Context(), identifier)
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeError(c, domain.ErrRecipientNotFound)
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"recipient": RecipientResponse{Identifier: acc.Identifier, DisplayName: acc.DisplayName}})
	}
}
