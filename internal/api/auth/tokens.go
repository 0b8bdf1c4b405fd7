package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/metrics"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/storage"
)

// ErrInvalidRefreshToken covers unknown, expired and revoked refresh tokens,
// and tokens whose account no longer exists.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// TokenService issues, rotates and revokes refresh tokens. Only hashes are
// stored.
type TokenService struct {
	store  storage.Storage
	ttl    time.Duration
	logger *zap.Logger
}

// NewTokenService returns a service issuing tokens valid for ttl.
func NewTokenService(store storage.Storage, ttl time.Duration, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{store: store, ttl: ttl, logger: logger}
}

// CreateRefreshToken stores a fresh token for userID and returns its
// plaintext, which is never persisted.
func (s *TokenService) CreateRefreshToken(ctx context.Context, userID string) (string, error) {
	record, plain, err := models.NewRefreshToken(userID, s.ttl)
	if err != nil {
		return "", err
	}
	if err := s.store.Tokens().Create(ctx, record); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	metrics.AuthTokensIssued.WithLabelValues("refresh").Inc()
	return plain, nil
}

// ValidateRefreshToken resolves plain to its owner.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, plain string) (*models.User, error) {
	record, err := s.store.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	switch {
	case err != nil:
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	case record == nil, !record.IsValid():
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.store.Users().GetByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup token owner: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidRefreshToken
	}
	return user, nil
}

// RevokeRefreshToken revokes plain. Unknown tokens are not an error.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, plain string) error {
	_, err := s.store.Tokens().RevokeByTokenHash(ctx, models.HashToken(plain))
	return err
}

// RevokeAllForUser revokes every outstanding refresh token of userID.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.store.Tokens().RevokeAllForUser(ctx, userID)
}

// RotateRefreshToken revokes old and issues a replacement for userID. Only
// the caller whose revoke takes effect gets a replacement; a concurrent
// rotation of the same token gets ErrInvalidRefreshToken.
func (s *TokenService) RotateRefreshToken(ctx context.Context, old, userID string) (string, error) {
	n, err := s.store.Tokens().RevokeByTokenHash(ctx, models.HashToken(old))
	if err != nil {
		return "", fmt.Errorf("revoke rotated refresh token: %w", err)
	}
	if n == 0 {
		s.logger.Warn("refresh token already rotated", zap.String("user_id", userID))
		return "", ErrInvalidRefreshToken
	}
	return s.CreateRefreshToken(ctx, userID)
}

// RunCleanup purges expired tokens every interval until ctx is done.
func (s *TokenService) RunCleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		n, err := s.store.Tokens().DeleteExpired(ctx)
		switch {
		case err != nil:
			s.logger.Warn("purge expired refresh tokens", zap.Error(err))
		case n > 0:
			s.logger.Debug("expired refresh tokens purged", zap.Int64("count", n))
		}
	}
}
