package api

import (
	"context"       // Engine signature
	"encoding/json" // Raw amount
	"io"            // SSE writer
	"net/http"      // HTTP status codes
	"strconv"       // String conversion
	"time"          // Timestamps

	"peerpay/internal/cache"      // Cache helpers
	"peerpay/internal/domain"     // Domain models
	"peerpay/internal/middleware" // Authenticated account
	"peerpay/internal/store"      // Account reads

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Fixed-point amounts
	"github.com/sirupsen/logrus"    // Logging
)

// Transferer executes transfers
type Transferer interface {
	Transfer(ctx context.Context, initiatorID, recipientIdentifier string, amount decimal.Decimal) (*domain.TransferRecord, error)
}

// HistoryReader serves merged history
type HistoryReader interface {
	Snapshot(ctx context.Context, accountID string) ([]domain.HistoryEntry, error)
	Watch(ctx context.Context, accountID string) (<-chan []domain.HistoryEntry, error)
}

// TransferRequest represents a transfer request
type TransferRequest struct {
	Recipient string      `json:"recipient" binding:"required"` // Recipient email
	Amount    json.Number `json:"amount"`                       // Number or numeric string, two decimals at most
}

// TransferResponse is a ledger record in the response
type TransferResponse struct {
	ID              string    `json:"id"`                // Record ID
	FromAccountID   string    `json:"from_account_id"`   // Sender
	ToAccountID     string    `json:"to_account_id"`     // Receiver
	FromDisplayName string    `json:"from_display_name"` // Sender name at transfer time
	ToDisplayName   string    `json:"to_display_name"`   // Receiver name at transfer time
	Amount          string    `json:"amount"`            // Two-decimal amount
	Timestamp       time.Time `json:"timestamp"`         // Server timestamp
	Type            string    `json:"type"`              // "transfer"
}

// HistoryItem is one entry of the merged history
type HistoryItem struct {
	ID               string    `json:"id"`                // Record ID
	Direction        string    `json:"direction"`         // in or out
	Amount           string    `json:"amount"`            // Two-decimal amount
	CounterpartyID   string    `json:"counterparty_id"`   // Other account
	CounterpartyName string    `json:"counterparty_name"` // Other account's name at transfer time
	Timestamp        time.Time `json:"timestamp"`         // Server timestamp
	Type             string    `json:"type"`              // "transfer"
}

func toTransferResponse(rec *domain.TransferRecord) TransferResponse {
	return TransferResponse{
		ID:              rec.ID,
		FromAccountID:   rec.FromAccountID,
		ToAccountID:     rec.ToAccountID,
		FromDisplayName: rec.FromDisplayName,
		ToDisplayName:   rec.ToDisplayName,
		Amount:          rec.Amount.StringFixed(domain.AmountPlaces),
		Timestamp:       rec.Timestamp,
		Type:            string(rec.Type),
	}
}

func toHistoryItems(accountID string, entries []domain.HistoryEntry) []HistoryItem {
	items := make([]HistoryItem, len(entries))
	for i, e := range entries {
		id, name := e.Counterparty(accountID)
		items[i] = HistoryItem{
			ID:               e.ID,
			Direction:        string(e.Direction),
			Amount:           e.Amount.StringFixed(domain.AmountPlaces),
			CounterpartyID:   id,
			CounterpartyName: name,
			Timestamp:        e.Timestamp,
			Type:             string(e.Type),
		}
	}
	return items
}

// pagination reads page and page_size with the same bounds everywhere
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size within limits
		}
	}
	return page, pageSize
}

// TransferHandler sends funds from the authenticated account
func TransferHandler(engine Transferer, c cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req TransferRequest // Bind JSON request to struct
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, "Invalid request")
			return
		}
		amount, err := domain.ParseAmount(req.Amount.String())
		if err != nil {
			writeError(ctx, err)
			return
		}
		rec, err := engine.Transfer(ctx.Request.Context(), middleware.AccountID(ctx), req.Recipient, amount)
		if err != nil {
			writeError(ctx, err)
			return
		}
		// Invalidate cached account views for both participants
		invalidateAccounts(context.WithoutCancel(ctx.Request.Context()), c, ttl, rec.ID, rec.FromAccountID, rec.ToAccountID)
		ctx.JSON(http.StatusCreated, gin.H{"transfer": toTransferResponse(rec)})
	}
}

// GetTransactionHistoryHandler returns one page of the merged history
func GetTransactionHistoryHandler(history HistoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := middleware.AccountID(c)
		entries, err := history.Snapshot(c.Request.Context(), accountID)
		if err != nil {
			writeError(c, err)
			return
		}
		page, pageSize := pagination(c)
		total := len(entries)
		start := (page - 1) * pageSize // Calculate offset
		if start > total {
			start = total
		}
		end := start + pageSize
		if end > total {
			end = total
		}
		c.JSON(http.StatusOK, gin.H{
			"transactions": toHistoryItems(accountID, entries[start:end]), // Page of merged history
			"page":         page,                                          // Current page
			"page_size":    pageSize,                                      // Page size
			"total":        total,                                         // Total entries
			"total_pages":  (total + pageSize - 1) / pageSize,             // Total pages
		})
	}
}

// StreamTransactionHistoryHandler pushes the merged history as Server-Sent
// Events. Every change sends a "history" event followed by an "account"
// event carrying the new balance.
func StreamTransactionHistoryHandler(history HistoryReader, accounts store.AccountStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := middleware.AccountID(c)
		updates, err := history.Watch(c.Request.Context(), accountID)
		if err != nil {
			writeError(c, err)
			return
		}
		logrus.WithField("account_id", accountID).Debug("History stream opened")
		c.Stream(func(w io.Writer) bool {
			entries, ok := <-updates
			if !ok {
				return false // Client went away
			}
			c.SSEvent("history", toHistoryItems(accountID, entries))
			acc, err := accounts.GetAccount(c.Request.Context(), accountID)
			if err != nil {
				logrus.WithFields(logrus.Fields{"account_id": accountID, "error": err.Error()}).Warn("Failed to load account for stream")
				return true
			}
			c.SSEvent("account", toAccountResponse(acc))
			return true
		})
	}
}
