package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"college-erp/common/metrics"
	"college-erp/internal/account"

	"github.com/uptrace/bun"
)

var ErrProfileNotFound = errors.New("profile not found")

type Repository interface {
	// EnsureExists inserts p unless a row with the same key already exists.
	// An existing row is left untouched. created reports whether p was inserted.
	EnsureExists(ctx context.Context, db bun.IDB, p Profile) (created bool, err error)
	Get(ctx context.Context, role account.Role, key string) (Profile, error)
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

func (r *repository) EnsureExists(ctx context.Context, db bun.IDB, p Profile) (bool, error) {
	start := time.Now()
	res, err := db.NewInsert().
		Model(p).
		On("CONFLICT (?) DO NOTHING", bun.Ident(p.keyColumn())).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", tableName(p.Role()), time.Since(start), err)

	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repository) Get(ctx context.Context, role account.Role, key string) (Profile, error) {
	p, err := Empty(role)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = r.db.NewSelect().
		Model(p).
		Where("? = ?", bun.Ident(p.keyColumn()), key).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", tableName(role), time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func tableName(role account.Role) string {
	switch role {
	case account.RoleStudent:
		return "students"
	case account.RoleFaculty:
		return "faculty"
	default:
		return "admins"
	}
}
