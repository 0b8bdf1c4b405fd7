package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

const tokenColumns = `id, user_id, token_hash, expires_at, created_at, revoked, revoked_at`

type sqliteTokenRepo struct {
	db *sql.DB
}

func (r *sqliteTokenRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+tokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt, boolToInt(t.Revoked))
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("insert refresh token: %w", ErrDuplicate)
	case err != nil:
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetByTokenHash returns (nil, nil) for an unknown hash.
func (r *sqliteTokenRepo) GetByTokenHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var (
		t         models.RefreshToken
		revoked   int
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &revoked, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	t.Revoked = revoked != 0
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

// revoke marks live tokens matching where as revoked. Already revoked rows
// keep their original revoked_at.
func (r *sqliteTokenRepo) revoke(ctx context.Context, where string, arg any) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE revoked = 0 AND `+where,
		time.Now(), arg)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sqliteTokenRepo) RevokeByTokenHash(ctx context.Context, hash string) (int64, error) {
	n, err := r.revoke(ctx, "token_hash = ?", hash)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh token: %w", err)
	}
	return n, nil
}

func (r *sqliteTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := r.revoke(ctx, "user_id = ?", userID); err != nil {
		return fmt.Errorf("revoke refresh tokens of %s: %w", userID, err)
	}
	return nil
}

func (r *sqliteTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
