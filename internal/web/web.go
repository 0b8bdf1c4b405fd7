// Package web serves the browser UI: server-rendered pages backed by a
// signed session cookie and CSRF-protected forms.
package web

import (
	"crypto/sha256"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/api/auth"
	"github.com/good-yellow-bee/projtrack/internal/api/middleware"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
	"github.com/good-yellow-bee/projtrack/internal/web/handlers"
	"github.com/good-yellow-bee/projtrack/internal/web/session"
)

// DefaultBasePath is where the UI is mounted.
const DefaultBasePath = "/ui"

// Config holds web UI settings.
type Config struct {
	BasePath         string
	SessionSecret    string
	CSRFSecret       string
	SessionTTL       time.Duration
	UseSecureCookies bool
}

type Server struct {
	handler          *handlers.Handler
	sessions         *session.Store
	csrfKey          []byte
	basePath         string
	useSecureCookies bool
	logger           *zap.Logger
}

// NewServer creates the web UI. The lockout tracker is shared with the API
// so failed logins count against the same identifier on both surfaces.
func NewServer(cfg Config, svc *tracker.Service, lockout *auth.LockoutTracker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	logger = logger.Named("web")

	sessions := session.NewStore(cfg.SessionSecret, cfg.SessionTTL, cfg.UseSecureCookies)
	csrfKey := sha256.Sum256([]byte(cfg.CSRFSecret))
	return &Server{
		handler:          handlers.NewHandler(svc, sessions, lockout, cfg.BasePath, logger),
		sessions:         sessions,
		csrfKey:          csrfKey[:],
		basePath:         cfg.BasePath,
		useSecureCookies: cfg.UseSecureCookies,
		logger:           logger,
	}
}

// SessionLookup lets the API accept a signed-in browser session.
func (s *Server) SessionLookup() middleware.SessionLookup {
	return func(r *http.Request) (middleware.Principal, bool) {
		sess, ok := s.sessions.Get(r)
		if !ok {
			return middleware.Principal{}, false
		}
		return middleware.Principal{UserID: sess.UserID, Username: sess.Username, Role: sess.Role}, true
	}
}
