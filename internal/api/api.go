// Package api provides the HTTP server: the JSON API, health probes and the
// mounted web UI.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/projtrack/internal/api/auth"
	"github.com/good-yellow-bee/projtrack/internal/api/health"
	"github.com/good-yellow-bee/projtrack/internal/api/middleware"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
	"github.com/good-yellow-bee/projtrack/internal/web"
)

// Config contains HTTP server configuration.
type Config struct {
	Address          string
	JWTSecret        []byte
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	LoginRateLimit   int // requests per minute per IP on signup and login
	LoginRateBurst   int
	LockoutThreshold int
	LockoutDuration  time.Duration
	CleanupInterval  time.Duration // sweep interval for lockouts, limiter buckets and expired tokens
	WebUIEnabled     bool          // Enable web UI
	WebBasePath      string
	SessionSecret    string // Signs web session cookies
	SessionTTL       time.Duration
	CSRFSecret       string // For web UI CSRF protection
	UseSecureCookies bool   // Use Secure flag for cookies (true in production with HTTPS)
	HTTPTLSEnabled   bool   // Enable HTTPS
	HTTPTLSCertFile  string // HTTPS certificate file
	HTTPTLSKeyFile   string // HTTPS private key file
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 7 * 24 * time.Hour // 7 days
	}
	if c.LoginRateLimit == 0 {
		c.LoginRateLimit = 10
	}
	if c.LoginRateBurst == 0 {
		c.LoginRateBurst = 5
	}
	if c.LockoutThreshold == 0 {
		c.LockoutThreshold = 5 // 5 failed attempts
	}
	if c.LockoutDuration == 0 {
		c.LockoutDuration = 15 * time.Minute
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.WebBasePath == "" {
		c.WebBasePath = web.DefaultBasePath
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 24 * time.Hour
	}
}

// Server is the HTTP server.
type Server struct {
	config  *Config
	service *tracker.Service
	logger  *zap.Logger

	jwtService     *auth.JWTService
	tokenService   *auth.TokenService
	lockoutTracker *auth.LockoutTracker
	loginLimiter   *middleware.RateLimiter
	web            *web.Server

	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new server around the tracker service.
func New(cfg *Config, svc *tracker.Service, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("tracker service is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if cfg.WebUIEnabled && (cfg.SessionSecret == "" || cfg.CSRFSecret == "") {
		return nil, fmt.Errorf("session and CSRF secrets are required for the web UI")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.SetDefaults()

	s := &Server{
		config:         cfg,
		service:        svc,
		logger:         logger,
		jwtService:     auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL),
		tokenService:   auth.NewTokenService(svc.Storage(), cfg.RefreshTokenTTL, logger),
		lockoutTracker: auth.NewLockoutTracker(cfg.LockoutThreshold, cfg.LockoutDuration),
		loginLimiter:   middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst),
		healthHandler:  health.NewHandler(),
	}
	s.healthHandler.RegisterChecker(health.NewStorageChecker(svc.Storage()))

	if cfg.WebUIEnabled {
		s.web = web.NewServer(web.Config{
			BasePath:         cfg.WebBasePath,
			SessionSecret:    cfg.SessionSecret,
			CSRFSecret:       cfg.CSRFSecret,
			SessionTTL:       cfg.SessionTTL,
			UseSecureCookies: cfg.UseSecureCookies,
		}, svc, s.lockoutTracker, logger)
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.HTTPTLSEnabled {
		s.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and the background sweepers, and blocks until
// ctx is canceled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.lockoutTracker.Run(ctx, s.config.CleanupInterval)
		return nil
	})
	g.Go(func() error {
		s.loginLimiter.Run(ctx, s.config.CleanupInterval)
		return nil
	})
	g.Go(func() error {
		s.tokenService.RunCleanup(ctx, s.config.CleanupInterval)
		return nil
	})

	g.Go(func() error {
		s.logger.Info("HTTP server listening",
			zap.String("address", s.config.Address),
			zap.Bool("tls", s.config.HTTPTLSEnabled),
			zap.Bool("web_ui", s.web != nil))
		var err error
		if s.config.HTTPTLSEnabled {
			err = s.server.ListenAndServeTLS(s.config.HTTPTLSCertFile, s.config.HTTPTLSKeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
