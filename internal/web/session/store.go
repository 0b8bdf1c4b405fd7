// Package session keeps the signed-in web user in a signed cookie.
package session

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

// CookieName is the name of the web session cookie.
const CookieName = "projtrack_session"

const (
	keyUserID   = "user_id"
	keyUsername = "username"
	keyRole     = "role"
)

// Session is the signed-in user carried by the cookie.
type Session struct {
	UserID   string
	Username string
	Role     models.Role
}

// CanEdit reports whether the session's role may modify projects.
func (s *Session) CanEdit() bool {
	return s.Role.CanEdit()
}

// Store reads and writes web sessions.
type Store struct {
	cookies *sessions.CookieStore
}

// NewStore creates a cookie-backed store. The secret is hashed to derive the
// signing key, so any passphrase works as long as it is stable across restarts.
func NewStore(secret string, ttl time.Duration, secure bool) *Store {
	key := sha256.Sum256([]byte(secret))
	cookies := sessions.NewCookieStore(key[:])
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	cookies.MaxAge(int(ttl.Seconds()))
	return &Store{cookies: cookies}
}

// Create signs in user, replacing any previous session values.
func (s *Store) Create(w http.ResponseWriter, r *http.Request, user *models.User) error {
	sess, err := s.cookies.New(r, CookieName)
	if sess == nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{
		keyUserID:   user.ID,
		keyUsername: user.Username,
		keyRole:     string(user.Role),
	}
	return sess.Save(r, w)
}

// Get returns the session attached to r, if it is valid.
func (s *Store) Get(r *http.Request) (*Session, bool) {
	sess, err := s.cookies.Get(r, CookieName)
	if err != nil || sess.IsNew {
		return nil, false
	}
	userID, _ := sess.Values[keyUserID].(string)
	username, _ := sess.Values[keyUsername].(string)
	role, _ := sess.Values[keyRole].(string)
	if userID == "" || username == "" {
		return nil, false
	}
	parsed, ok := models.ParseRole(role)
	if !ok {
		return nil, false
	}
	return &Session{UserID: userID, Username: username, Role: parsed}, true
}

// Delete expires the session cookie.
func (s *Store) Delete(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.cookies.Get(r, CookieName)
	if sess == nil {
		return errors.New("session unavailable")
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// AddFlash queues a one-shot message shown on the next page render.
func (s *Store) AddFlash(w http.ResponseWriter, r *http.Request, message string) error {
	sess, err := s.cookies.Get(r, CookieName)
	if sess == nil {
		return err
	}
	sess.AddFlash(message)
	return sess.Save(r, w)
}

// Flashes pops queued messages. Call before writing the response body.
func (s *Store) Flashes(w http.ResponseWriter, r *http.Request) []string {
	sess, err := s.cookies.Get(r, CookieName)
	if err != nil || sess.IsNew {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}
