package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"college-erp/common/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailTaken is returned when the accounts.email unique constraint rejects an insert.
	ErrEmailTaken = errors.New("email already exists")
)

const uniqueViolation = "23505"

type Repository interface {
	// Create inserts acct through db, which may be a transaction.
	Create(ctx context.Context, db bun.IDB, acct *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]Account, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Create(ctx context.Context, db bun.IDB, acct *Account) error {
	start := time.Now()
	_, err := db.NewInsert().Model(acct).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "accounts", time.Since(start), err)

	if isUniqueViolation(err, "email") {
		return ErrEmailTaken
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	start := time.Now()
	acct := new(Account)
	err := r.db.NewSelect().Model(acct).Where("id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "accounts", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	start := time.Now()
	acct := new(Account)
	err := r.db.NewSelect().
		Model(acct).
		Where("email = ?", email).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "accounts", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		Model((*Account)(nil)).
		Where("email = ?", email).
		Exists(ctx)

	r.metrics.Database.RecordQuery(ctx, "exists", "accounts", time.Since(start), err)

	return exists, err
}

// Search lists accounts whose username or email contains query, newest first.
func (r *repository) Search(ctx context.Context, query string, limit int) ([]Account, error) {
	start := time.Now()
	var accounts []Account
	q := r.db.NewSelect().Model(&accounts).Order("created_at DESC").Limit(limit)
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("username ILIKE ?", pattern).WhereOr("email ILIKE ?", pattern)
		})
	}
	err := q.Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "accounts", time.Since(start), err)

	return accounts, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// isUniqueViolation reports whether err is a Postgres unique violation on a
// constraint whose name contains column.
func isUniqueViolation(err error, column string) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Field('C') == uniqueViolation && strings.Contains(pgErr.Field('n'), column)
}
