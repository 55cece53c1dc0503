package auth

import (
	"context"
	"time"

	"college-erp/common/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) *Repository {
	return &Repository{
		db:      db,
		metrics: m,
	}
}

// CreateRefreshToken stores a new refresh token
func (r *Repository) CreateRefreshToken(ctx context.Context, accountID uuid.UUID, token string, expiresAt time.Time) error {
	start := time.Now()
	refreshToken := &RefreshToken{
		AccountID: accountID,
		Token:     token,
		ExpiresAt: expiresAt,
	}

	_, err := r.db.NewInsert().Model(refreshToken).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "refresh_tokens", time.Since(start), err)

	return err
}

// GetRefreshToken returns an unexpired refresh token or sql.ErrNoRows.
func (r *Repository) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	start := time.Now()
	refreshToken := &RefreshToken{}
	err := r.db.NewSelect().
		Model(refreshToken).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now()).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "refresh_tokens", time.Since(start), err)

	if err != nil {
		return nil, err
	}

	return refreshToken, nil
}

// DeleteRefreshToken removes a refresh token and reports whether it existed.
func (r *Repository) DeleteRefreshToken(ctx context.Context, token string) (bool, error) {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)

	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteExpiredTokens removes all expired refresh tokens
func (r *Repository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("expires_at < ?", time.Now()).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)

	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
