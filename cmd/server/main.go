package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/api"
	"github.com/good-yellow-bee/projtrack/internal/metrics"
	"github.com/good-yellow-bee/projtrack/internal/storage"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
	"github.com/good-yellow-bee/projtrack/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "projtrack-server",
	Short: "ProjTrack Server - project tracking API and web UI",
	Long: `ProjTrack Server serves the JSON API used by projctl and the
browser UI for managing accounts and projects.

Secrets are read from the environment only:
  PROJTRACK_JWT_SECRET       signs access tokens (required)
  PROJTRACK_SESSION_SECRET   signs web session cookies (web UI)
  PROJTRACK_CSRF_SECRET      derives the CSRF key (web UI)
  PROJTRACK_MONGO_URI        connection string for the mongo driver`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.VersionString("projtrack-server"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies CLI overrides.
func loadConfig() (*Config, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// newLogger builds a development logger in verbose mode and a production one otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStorage opens and migrates the configured store.
func openStorage(cfg *StorageConfig, logger *zap.Logger) (storage.Storage, error) {
	var store storage.Storage
	switch cfg.Driver {
	case DriverMongo:
		store = storage.NewMongoStorage(&storage.MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.MongoTimeout,
		}, logger)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		store = storage.NewSQLiteStorage(cfg.SQLitePath, logger)
	}

	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open %s storage: %w", store.Name(), err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate %s storage: %w", store.Name(), err)
	}
	return store, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	store, err := openStorage(&cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if n, err := store.Users().Count(cmd.Context()); err != nil {
		logger.Warn("count accounts", zap.Error(err))
	} else {
		logger.Info("storage initialized", zap.String("driver", store.Name()), zap.Int64("accounts", n))
		if n == 0 {
			logger.Info("no accounts yet; sign up through the API or run \"projtrack-server user create\"")
		}
	}

	svc := tracker.NewService(store, logger.Named("tracker"), tracker.WithBcryptCost(cfg.Auth.BcryptCost))

	apiCfg := &api.Config{
		Address:          cfg.Server.HTTPAddress,
		JWTSecret:        []byte(cfg.Auth.JWTSecret),
		AccessTokenTTL:   cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL:  cfg.Auth.RefreshTokenTTL,
		LoginRateLimit:   cfg.Auth.LoginRateLimit,
		LoginRateBurst:   cfg.Auth.LoginRateBurst,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
		WebUIEnabled:     !cfg.Web.Disabled,
		WebBasePath:      cfg.Web.BasePath,
		SessionSecret:    cfg.Web.SessionSecret,
		SessionTTL:       cfg.Web.SessionTTL,
		CSRFSecret:       cfg.Web.CSRFSecret,
		UseSecureCookies: cfg.Web.UseSecureCookies,
		HTTPTLSEnabled:   cfg.Server.HTTPTLS.Enabled,
		HTTPTLSCertFile:  cfg.Server.HTTPTLS.CertFile,
		HTTPTLSKeyFile:   cfg.Server.HTTPTLS.KeyFile,
		Verbose:          cfg.Verbose,
	}
	srv, err := api.New(apiCfg, svc, logger.Named("api"))
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)
	metricsSrv := metrics.NewServer(cfg.Server.MetricsAddress, logger.Named("metrics"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsDone := make(chan struct{})
	go func() {
		defer close(metricsDone)
		if err := metricsSrv.Run(ctx); err != nil {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	logger.Info("starting projtrack-server",
		zap.String("version", config.Version),
		zap.String("address", srv.Address()),
		zap.Bool("web_ui", !cfg.Web.Disabled))

	runErr := srv.Run(ctx)
	stop()
	<-metricsDone

	if runErr != nil {
		return fmt.Errorf("run server: %w", runErr)
	}
	logger.Info("server stopped")
	return nil
}
