package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("clé-du-service"))
	require.NoError(t, err)
	return s
}

// roundTrip sauvegarde une session puis la relit depuis le cookie émis
func roundTrip(t *testing.T, store *Store, ctx Context) (Context, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil)
	require.NoError(t, store.Save(rec, req, ctx))

	next := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	return store.Load(next)
}

func TestStore_SaveThenLoad(t *testing.T) {
	store := NewStore("secret-de-test-32-octets-minimum!", false, time.Hour)
	want := Context{Token: signedToken(t, time.Now().Add(time.Hour)), UserID: 7, Role: "BUYER"}

	got, err := roundTrip(t, store, want)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.Authenticated())
	assert.False(t, got.IsAdmin())
}

func TestStore_ExpiredToken(t *testing.T) {
	store := NewStore("secret-de-test-32-octets-minimum!", false, time.Hour)
	ctx := Context{Token: signedToken(t, time.Now().Add(-time.Minute)), UserID: 7, Role: "ADMIN"}

	_, err := roundTrip(t, store, ctx)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestStore_OpaqueTokenAccepted(t *testing.T) {
	store := NewStore("secret-de-test-32-octets-minimum!", false, time.Hour)
	ctx := Context{Token: "opaque", UserID: 3, Role: "ADMIN"}

	got, err := roundTrip(t, store, ctx)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
}

func TestStore_NoCookie(t *testing.T) {
	store := NewStore("secret-de-test-32-octets-minimum!", false, time.Hour)
	_, err := store.Load(httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_Clear(t *testing.T) {
	store := NewStore("secret-de-test-32-octets-minimum!", false, time.Hour)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Clear(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
}
