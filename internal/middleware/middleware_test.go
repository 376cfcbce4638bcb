package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// cookieFor ouvre une session via le store et retourne le cookie émis
func cookieFor(t *testing.T, store *session.Store, sess session.Context) *http.Cookie {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(rec, req, sess))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func signed(t *testing.T, exp time.Time) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "exp": exp.Unix()}).
		SignedString([]byte("data-service-key"))
	require.NoError(t, err)
	return tok
}

func protectedRouter(t *testing.T, store *session.Store) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", AuthRequired(store, zaptest.NewLogger(t)), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": CurrentSession(c).UserID})
	})
	r.GET("/admin", AuthRequired(store, zaptest.NewLogger(t)), RequireAdmin, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	store := session.NewStore("test-secret-test-secret-test-secret", false, time.Hour)
	r := protectedRouter(t, store)

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(cookieFor(t, store, session.Context{Token: signed(t, time.Now().Add(time.Hour)), UserID: 7, Role: models.RoleBuyer}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":7}`, rec.Body.String())
	})

	t.Run("expired token clears cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(cookieFor(t, store, session.Context{Token: signed(t, time.Now().Add(-time.Minute)), UserID: 7, Role: models.RoleBuyer}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotEmpty(t, rec.Result().Cookies())
		assert.Negative(t, rec.Result().Cookies()[0].MaxAge)
	})
}

func TestRequireAdmin(t *testing.T) {
	store := session.NewStore("test-secret-test-secret-test-secret", false, time.Hour)
	r := protectedRouter(t, store)

	for role, want := range map[string]int{models.RoleBuyer: http.StatusForbidden, models.RoleAdmin: http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(cookieFor(t, store, session.Context{Token: "opaque", UserID: 1, Role: role}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(utils.RequestIDKey)) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Body.String())
	require.NoError(t, err)
	assert.Equal(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, given)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, given, rec.Body.String())
}

type memCounter struct {
	counts map[string]int64
	err    error
}

func (m *memCounter) IncrementRateLimit(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	return m.counts[key], nil
}

func payRouter(t *testing.T, counter Counter) *gin.Engine {
	r := gin.New()
	r.POST("/pay", func(c *gin.Context) {
		c.Set(utils.SessionKey, session.Context{Token: "t", UserID: 7})
	}, PayRateLimit(counter, 2, time.Minute, zaptest.NewLogger(t)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestPayRateLimit(t *testing.T) {
	counter := &memCounter{counts: map[string]int64{}}
	r := payRouter(t, counter)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pay", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, int64(3), counter.counts["pay_attempts:7"])
}

func TestPayRateLimit_FailsOpen(t *testing.T) {
	r := payRouter(t, &memCounter{err: errors.New("redis down")})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pay", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	r = payRouter(t, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pay", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
