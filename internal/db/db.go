package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"college-erp/internal/account"
	"college-erp/internal/auth"
	"college-erp/internal/config"
	"college-erp/internal/profile"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func New(ctx context.Context, cfg config.DatabaseConfig) (*bun.DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		sslMode,
	)

	db, err := NewWithDSN(ctx, dsn)
	if err != nil {
		return nil, err
	}
	configurePool(db, cfg)
	return db, nil
}

// NewWithDSN opens and pings a connection for dsn (used directly by tests).
func NewWithDSN(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("database connected successfully")
	return db, nil
}

func configurePool(db *bun.DB, cfg config.DatabaseConfig) {
	sqlDB := db.DB

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 25
	}
	sqlDB.SetMaxOpenConns(maxOpen)

	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 10
	}
	sqlDB.SetMaxIdleConns(maxIdle)

	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime == 0 {
		connMaxLifetime = 300
	}
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	connMaxIdleTime := cfg.ConnMaxIdleTime
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 60
	}
	sqlDB.SetConnMaxIdleTime(time.Duration(connMaxIdleTime) * time.Second)

	slog.Info("database pool configured",
		"max_open_conns", maxOpen,
		"max_idle_conns", maxIdle,
		"conn_max_lifetime_seconds", connMaxLifetime,
		"conn_max_idle_time_seconds", connMaxIdleTime,
	)
}

func Close(db *bun.DB) {
	if db != nil {
		db.Close()
	}
}

// Tables lists every table in dependency order, children last.
var Tables = []string{"students", "faculty", "admins", "accounts", "refresh_tokens"}

type table struct {
	model       interface{}
	foreignKeys []string
}

var schema = []table{
	{model: (*profile.StudentProfile)(nil)},
	{model: (*profile.FacultyProfile)(nil)},
	{model: (*profile.AdminProfile)(nil)},
	{
		model: (*account.Account)(nil),
		foreignKeys: []string{
			`("student_id") REFERENCES "students" ("student_id")`,
			`("faculty_id") REFERENCES "faculty" ("faculty_id")`,
			`("admin_id") REFERENCES "admins" ("admin_id")`,
		},
	},
	{
		model: (*auth.RefreshToken)(nil),
		foreignKeys: []string{
			`("account_id") REFERENCES "accounts" ("id") ON DELETE CASCADE`,
		},
	},
}

const accountRoleCheck = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'accounts_role_profile_check') THEN
		ALTER TABLE accounts ADD CONSTRAINT accounts_role_profile_check CHECK (
			(role = 'student' AND student_id IS NOT NULL AND faculty_id IS NULL AND admin_id IS NULL) OR
			(role = 'faculty' AND faculty_id IS NOT NULL AND student_id IS NULL AND admin_id IS NULL) OR
			(role = 'admin' AND admin_id IS NOT NULL AND student_id IS NULL AND faculty_id IS NULL)
		);
	END IF;
END $$;
`

const updatedAtTrigger = `
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
	NEW.updated_at = CURRENT_TIMESTAMP;
	RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_accounts_updated_at ON accounts;
CREATE TRIGGER update_accounts_updated_at
	BEFORE UPDATE ON accounts
	FOR EACH ROW
	EXECUTE FUNCTION update_updated_at_column();
`

// RunMigrations creates the schema. It is safe to run repeatedly.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	for _, t := range schema {
		q := db.NewCreateTable().
			Model(t.model).
			IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for model: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, accountRoleCheck); err != nil {
		return fmt.Errorf("failed to add account role constraint: %w", err)
	}
	if _, err := db.ExecContext(ctx, updatedAtTrigger); err != nil {
		return fmt.Errorf("failed to create updated_at trigger: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}
