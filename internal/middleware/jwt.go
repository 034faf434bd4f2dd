package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"peerpay/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by JWTAuthMiddleware
const (
	AccountIDKey  = "accountID"  // Authenticated account ID
	IdentifierKey = "identifier" // Identifier bound at login
)

// JWTAuthMiddleware validates JWT tokens and extracts the account binding
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header", "code": "unauthorized"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthorized"})
			return
		}
		c.Set(AccountIDKey, claims.AccountID)   // Store account ID in context
		c.Set(IdentifierKey, claims.Identifier) // Store identifier in context
		c.Next()                                // Proceed to the next handler
	}
}

// AccountID returns the authenticated account ID, or "" outside JWTAuthMiddleware
func AccountID(c *gin.Context) string {
	return c.GetString(AccountIDKey)
}
