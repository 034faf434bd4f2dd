package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"peerpay/internal/domain" // Error kinds

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// errorKind is the stable, client-visible form of a domain error
type errorKind struct {
	err    error
	status int
	code   string
}

// Ordered: the first match wins
var errorKinds = []errorKind{
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrSelfTransfer, http.StatusBadRequest, "self_transfer"},
	{domain.ErrRecipientNotFound, http.StatusNotFound, "recipient_not_found"},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{domain.ErrContention, http.StatusConflict, "contention"},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{domain.ErrIdentifierTaken, http.StatusConflict, "identifier_taken"},
}

// writeError maps err to its status and code. Unknown errors are logged and
// reported as internal without leaking their text.
func writeError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, gin.H{"error": k.err.Error(), "code": k.code})
			return
		}
	}
	logrus.WithFields(logrus.Fields{
		"path":  c.FullPath(), // Route
		"error": err.Error(),  // Error message
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "code": "internal"})
}

// badRequest reports malformed input
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}
