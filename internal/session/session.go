// Package session porte l'identité de l'utilisateur (token, id, rôle) dans un
// cookie signé. Le contexte est relu à chaque requête et passé explicitement
// aux collaborateurs ; rien n'est mis en cache côté serveur.
package session

import (
	"errors"
	"net/http"
	"time"

	"usha_storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
)

const (
	cookieName = "usha_session"

	keyToken  = "token"
	keyUserID = "user_id"
	keyRole   = "user_role"
)

var (
	ErrNoSession = errors.New("aucune session")
	ErrExpired   = errors.New("session expirée")
)

// Context est l'identité courante, relue depuis le cookie à chaque requête
type Context struct {
	Token  string
	UserID models.ID
	Role   string
}

func (c Context) Authenticated() bool {
	return c.Token != "" && c.UserID > 0
}

func (c Context) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

type Store struct {
	cookies *sessions.CookieStore
	now     func() time.Time
}

// NewStore configure le cookie store comme pour les sessions OAuth : HttpOnly, SameSite=Lax
func NewStore(secret string, secure bool, maxAge time.Duration) *Store {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: store, now: time.Now}
}

// Load lit la session du cookie. Un token dont le claim exp est dépassé est rejeté
// sans appel au service de données.
func (s *Store) Load(r *http.Request) (Context, error) {
	sess, err := s.cookies.Get(r, cookieName)
	if err != nil {
		return Context{}, ErrNoSession
	}
	token, _ := sess.Values[keyToken].(string)
	userID, _ := sess.Values[keyUserID].(int64)
	role, _ := sess.Values[keyRole].(string)
	ctx := Context{Token: token, UserID: models.ID(userID), Role: role}
	if !ctx.Authenticated() {
		return Context{}, ErrNoSession
	}
	if s.expired(token) {
		return Context{}, ErrExpired
	}
	return ctx, nil
}

func (s *Store) Save(w http.ResponseWriter, r *http.Request, ctx Context) error {
	sess, _ := s.cookies.Get(r, cookieName)
	sess.Values[keyToken] = ctx.Token
	sess.Values[keyUserID] = int64(ctx.UserID)
	sess.Values[keyRole] = ctx.Role
	return sess.Save(r, w)
}

// Clear supprime le cookie (déconnexion ou 401 du service de données)
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.cookies.Get(r, cookieName)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// expired lit le claim exp sans vérifier la signature : la clé appartient au
// service de données, qui reste seul juge de la validité.
func (s *Store) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// token opaque : on laisse le service de données trancher
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(s.now())
}
