package api

import (
	"time" // Cache TTL

	"peerpay/internal/cache"      // Cache contract
	"peerpay/internal/middleware" // Auth, admin and idempotency middleware
	"peerpay/internal/store"      // Store contracts

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Starting balance
)

// Services is everything the HTTP surface depends on
type Services struct {
	Accounts        store.AccountStore // Registration and account reads
	Directory       store.Directory    // Recipient and login lookups
	Ledger          store.LedgerStore  // Admin listing
	Engine          Transferer         // Transfer execution
	History         HistoryReader      // Merged history
	Cache           cache.Cache        // Read cache and idempotency keys
	JWTSecret       string             // JWT secret key
	StartingBalance decimal.Decimal    // Balance credited at registration
	CacheTTL        time.Duration      // TTL of cached account views
	IdempotencyTTL  time.Duration      // Retention of Idempotency-Key responses
}

// Routes registers all endpoints on r
func Routes(r *gin.Engine, s Services) {
	// Auth routes
	r.POST("/user", RegisterHandler(s.Accounts, s.StartingBalance)) // Registration endpoint
	r.POST("/user/login", LoginHandler(s.Directory, s.JWTSecret))   // Login endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(s.JWTSecret))
	walletGroup.GET("", GetAccountHandler(s.Accounts, s.Cache, s.CacheTTL))                                                          // Account endpoint
	walletGroup.GET("/recipient", ResolveRecipientHandler(s.Directory))                                                              // Recipient lookup endpoint
	walletGroup.POST("/transfer", middleware.Idempotency(s.Cache, s.IdempotencyTTL), TransferHandler(s.Engine, s.Cache, s.CacheTTL)) // Transfer endpoint
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(s.History))                                                        // Transaction history endpoint
	walletGroup.GET("/transactions/stream", StreamTransactionHistoryHandler(s.History, s.Accounts))                                  // Live history endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(s.JWTSecret), middleware.AdminOnlyMiddleware(s.Accounts))
	adminGroup.GET("/transactions", ListTransactionsHandler(s.Ledger)) // List transactions endpoint
}
