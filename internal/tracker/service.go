// Package tracker implements account and project operations on top of storage.
package tracker

import (
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/projtrack/internal/metrics"
	"github.com/good-yellow-bee/projtrack/internal/storage"
)

// DefaultBatchConcurrency bounds parallel writes in UpdateTitles.
const DefaultBatchConcurrency = 8

// Service implements the tracker operations shared by the API, web UI and CLI.
type Service struct {
	store            storage.Storage
	logger           *zap.Logger
	bcryptCost       int
	batchConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithBatchConcurrency overrides how many batch items are written in parallel.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// NewService creates a tracker service.
func NewService(store storage.Storage, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:            store,
		logger:           logger,
		bcryptCost:       bcrypt.DefaultCost,
		batchConcurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Storage returns the underlying store.
func (s *Service) Storage() storage.Storage {
	return s.store
}

func (s *Service) storageError(operation string, err error) {
	metrics.StorageErrors.WithLabelValues(operation, s.store.Name()).Inc()
	s.logger.Error("storage error", zap.String("operation", operation), zap.Error(err))
}
