package api

import (
	"net/http" // HTTP status codes

	"peerpay/internal/store" // Ledger reads

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListTransactionsHandler pages through the whole ledger, newest first
func ListTransactionsHandler(ledger store.LedgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c)
		total, err := ledger.Count(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		recs, err := ledger.List(c.Request.Context(), (page-1)*pageSize, pageSize)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]TransferResponse, len(recs))
		for i := range recs {
			out[i] = toTransferResponse(&recs[i])
		}
		c.JSON(http.StatusOK, gin.H{
			"transactions": out,                                    // Page of records
			"page":         page,                                   // Current page
			"page_size":    pageSize,                               // Page size
			"total":        total,                                  // Total records
			"total_pages":  (int(total) + pageSize - 1) / pageSize, // Total pages
		})
	}
}
