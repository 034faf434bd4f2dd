package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"net/http/httptest"
	"testing"
	"time"

	"peerpay/internal/cache"
	"peerpay/internal/domain"
	"peerpay/internal/store/memory"
	"peerpay/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/", JWTAuthMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusOK, AccountID(c)+"|"+c.GetString(IdentifierKey))
	})

	token, err := utils.GenerateJWT("acc-1", "alice@example.com", secret)
	require.NoError(t, err)
	w := serve(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acc-1|alice@example.com", w.Body.String())

	other, err := utils.GenerateJWT("acc-1", "alice@example.com", "other-secret")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, other).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	user := &domain.Account{Identifier: "user@example.com", DisplayName: "User"}
	admin := &domain.Account{Identifier: "admin@example.com", DisplayName: "Admin", Role: domain.RoleAdmin}
	require.NoError(t, s.CreateAccount(ctx, user))
	require.NoError(t, s.CreateAccount(ctx, admin))

	r := gin.New()
	r.POST("/", JWTAuthMiddleware(secret), AdminOnlyMiddleware(s), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tok := func(acc *domain.Account) string {
		token, err := utils.GenerateJWT(acc.ID, acc.Identifier, secret)
		require.NoError(t, err)
		return token
	}
	assert.Equal(t, http.StatusNoContent, serve(r, tok(admin)).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, tok(user)).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, tok(&domain.Account{ID: "ghost", Identifier: "ghost@example.com"})).Code)
}

// idempotentRouter answers with the statuses queued in statuses, counting calls
func idempotentRouter(c cache.Cache, calls *int, statuses ...int) *gin.Engine {
	r := gin.New()
	r.POST("/", func(ctx *gin.Context) {
		ctx.Set(AccountIDKey, "acc-1")
		ctx.Next()
	}, Idempotency(c, time.Hour), func(ctx *gin.Context) {
		status := statuses[*calls%len(statuses)]
		*calls++
		ctx.JSON(status, gin.H{"call": *calls})
	})
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	calls := 0
	r := idempotentRouter(cache.NewMemory(), &calls, http.StatusCreated)

	first := serve(r, "", IdempotencyHeader, "k")
	second := serve(r, "", IdempotencyHeader, "k")
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replay"))

	serve(r, "")
	serve(r, "")
	assert.Equal(t, 3, calls, "requests without a key are never deduplicated")
}

func TestIdempotencyKeepsClientErrors(t *testing.T) {
	calls := 0
	r := idempotentRouter(cache.NewMemory(), &calls, http.StatusUnprocessableEntity, http.StatusCreated)

	assert.Equal(t, http.StatusUnprocessableEntity, serve(r, "", IdempotencyHeader, "k").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, serve(r, "", IdempotencyHeader, "k").Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReleasesRetryableFailures(t *testing.T) {
	for _, status := range []int{http.StatusServiceUnavailable, http.StatusConflict} {
		calls := 0
		r := idempotentRouter(cache.NewMemory(), &calls, status, http.StatusCreated)

		assert.Equal(t, status, serve(r, "", IdempotencyHeader, "k").Code)
		assert.Equal(t, http.StatusCreated, serve(r, "", IdempotencyHeader, "k").Code)
		assert.Equal(t, 2, calls)
	}
}

func TestIdempotencyInProgress(t *testing.T) {
	c := cache.NewMemory()
	pending := storedResponse{Status: idempotencyPending, Fingerprint: fingerprintOf(http.MethodPost, "/", nil)}
	require.NoError(t, c.Set(context.Background(), cache.IdempotencyKey("acc-1", "k"), pending, time.Hour))
	calls := 0
	r := idempotentRouter(c, &calls, http.StatusCreated)

	assert.Equal(t, http.StatusConflict, serve(r, "", IdempotencyHeader, "k").Code)
	assert.Equal(t, 0, calls)
}

// ctxCache fails every call made on a finished context, as go-redis does
type ctxCache struct {
	*cache.Memory
	mu     sync.Mutex
	nxTTLs []time.Duration
}

func (c *ctxCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.Memory.Get(ctx, key, dest)
}

func (c *ctxCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Memory.Set(ctx, key, value, ttl)
}

func (c *ctxCache) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	c.nxTTLs = append(c.nxTTLs, ttl)
	c.mu.Unlock()
	return c.Memory.SetNX(ctx, key, value, ttl)
}

func (c *ctxCache) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Memory.Delete(ctx, keys...)
}

func TestIdempotencySavesOutcomeAfterClientDisconnect(t *testing.T) {
	c := &ctxCache{Memory: cache.NewMemory()}
	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	r := gin.New()
	r.POST("/", func(ctx *gin.Context) {
		ctx.Set(AccountIDKey, "acc-1")
		ctx.Next()
	}, Idempotency(c, time.Hour), func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusCreated, gin.H{"call": calls})
		cancel() // The client goes away once the transfer has committed
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(reqCtx)
	req.Header.Set(IdempotencyHeader, "k")
	first := httptest.NewRecorder()
	r.ServeHTTP(first, req)
	require.Equal(t, http.StatusCreated, first.Code)

	retry := serve(r, "", IdempotencyHeader, "k")
	assert.Equal(t, http.StatusCreated, retry.Code, retry.Body.String())
	assert.Equal(t, "true", retry.Header().Get("X-Idempotency-Replay"))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyPendingClaimIsShortLived(t *testing.T) {
	c := &ctxCache{Memory: cache.NewMemory()}
	calls := 0
	r := idempotentRouter(c, &calls, http.StatusCreated)

	serve(r, "", IdempotencyHeader, "k")
	require.Len(t, c.nxTTLs, 1)
	assert.LessOrEqual(t, c.nxTTLs[0], claimTTL)
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	calls := 0
	r := idempotentRouter(cache.NewMemory(), &calls, http.StatusCreated)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(IdempotencyHeader, "k")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, send(`{"recipient":"bob@example.com","amount":"5"}`).Code)
	w := send(`{"recipient":"bob@example.com","amount":"500"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "idempotency_key_reused")
	assert.Equal(t, http.StatusCreated, send(`{"recipient":"bob@example.com","amount":"5"}`).Code)
	assert.Equal(t, 1, calls)
}
