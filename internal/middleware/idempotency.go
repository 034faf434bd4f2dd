package middleware

import (
	"bytes"         // Response capture
	"context"       // Detached writes
	"crypto/sha256" // Request fingerprint
	"encoding/hex"  // Fingerprint encoding
	"io"            // Request body
	"net/http"      // HTTP status codes
	"time"          // Key retention

	"peerpay/internal/cache" // Response store

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// IdempotencyHeader carries the caller's request key
const IdempotencyHeader = "Idempotency-Key"

// idempotencyPending marks a key whose first request is still running
const idempotencyPending = 0

// claimTTL bounds how long a pending claim blocks retries if its request
// never finishes writing the outcome
const claimTTL = 30 * time.Second

// storedResponse is what a replayed request receives
type storedResponse struct {
	Status      int    `json:"status"`      // HTTP status of the first response
	Body        []byte `json:"body"`        // Raw body of the first response
	Fingerprint string `json:"fingerprint"` // Hash of the first request
}

// bodyRecorder tees the response body
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// fingerprint hashes the method, path and body, restoring the body for the handler
func fingerprint(ctx *gin.Context) (string, error) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return "", err
	}
	ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
	return fingerprintOf(ctx.Request.Method, ctx.Request.URL.Path, body), nil
}

func fingerprintOf(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped per account. Requests without the header pass through.
// Store faults and contention are not stored, so the caller may retry them
// under the same key. Reusing a key with a different request is rejected.
func Idempotency(c cache.Cache, ttl time.Duration) gin.HandlerFunc {
	pendingTTL := min(claimTTL, ttl)
	return func(ctx *gin.Context) {
		key := ctx.GetHeader(IdempotencyHeader)
		if key == "" {
			ctx.Next()
			return
		}
		fp, err := fingerprint(ctx)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "code": "invalid_request"})
			return
		}
		cacheKey := cache.IdempotencyKey(AccountID(ctx), key)
		reqCtx := ctx.Request.Context()

		claimed, err := c.SetNX(reqCtx, cacheKey, storedResponse{Status: idempotencyPending, Fingerprint: fp}, pendingTTL)
		if err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Error("Idempotency store unavailable")
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Idempotency store unavailable", "code": "store_unavailable"})
			return
		}
		if !claimed {
			var prev storedResponse
			found, err := c.Get(reqCtx, cacheKey, &prev)
			if err == nil && found && prev.Fingerprint != fp {
				ctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "Idempotency-Key was used for a different request", "code": "idempotency_key_reused"})
				return
			}
			if err != nil || !found || prev.Status == idempotencyPending {
				ctx.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Request with this Idempotency-Key is in progress", "code": "idempotency_in_progress"})
				return
			}
			logrus.WithField("key", key).Info("Idempotency hit, replaying response")
			ctx.Header("X-Idempotency-Replay", "true")
			ctx.Data(prev.Status, "application/json; charset=utf-8", prev.Body)
			ctx.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: ctx.Writer}
		ctx.Writer = rec
		ctx.Next()

		// The outcome must be recorded even if the client has gone away
		saveCtx := context.WithoutCancel(reqCtx)
		status := rec.Status()
		if status >= http.StatusInternalServerError || status == http.StatusConflict {
			_ = c.Delete(saveCtx, cacheKey) // Let the caller retry
			return
		}
		stored := storedResponse{Status: status, Body: rec.buf.Bytes(), Fingerprint: fp}
		if err := c.Set(saveCtx, cacheKey, stored, ttl); err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Error("Failed to save idempotency key")
		}
	}
}
