package middleware

import (
	"net/http" // HTTP status codes

	"peerpay/internal/domain" // Domain models
	"peerpay/internal/store"  // Account lookups

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnlyMiddleware checks the account's role in the store on each request
func AdminOnlyMiddleware(accounts store.AccountStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := AccountID(c)
		if accountID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
			return
		}
		acc, err := accounts.GetAccount(c.Request.Context(), accountID)
		// Unknown accounts and non-admins are both forbidden
		if err != nil || acc.Role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required", "code": "forbidden"})
			return
		}
		c.Next()
	}
}
