package registration

import (
	"context"

	"college-erp/common/metrics"
	"college-erp/internal/account"
	"college-erp/internal/profile"

	"github.com/uptrace/bun"
)

// Store is the persistence the registration flow needs.
type Store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	// WithinTransaction runs fn in one transaction. The transaction commits
	// when fn returns nil and rolls back on error or panic.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of writes available inside WithinTransaction.
type Tx interface {
	EnsureProfile(ctx context.Context, p profile.Profile) (created bool, err error)
	CreateAccount(ctx context.Context, acct *account.Account) error
}

type bunStore struct {
	db       *bun.DB
	accounts account.Repository
	profiles profile.Repository
	metrics  *metrics.Metrics
}

func NewStore(db *bun.DB, accounts account.Repository, profiles profile.Repository, m *metrics.Metrics) Store {
	return &bunStore{
		db:       db,
		accounts: accounts,
		profiles: profiles,
		metrics:  m,
	}
}

func (s *bunStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.accounts.EmailExists(ctx, email)
}

func (s *bunStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{tx: tx, accounts: s.accounts, profiles: s.profiles})
	})

	s.metrics.Database.RecordTransaction(ctx, "registration", err)

	return err
}

type bunTx struct {
	tx       bun.Tx
	accounts account.Repository
	profiles profile.Repository
}

func (t *bunTx) EnsureProfile(ctx context.Context, p profile.Profile) (bool, error) {
	return t.profiles.EnsureExists(ctx, t.tx, p)
}

func (t *bunTx) CreateAccount(ctx context.Context, acct *account.Account) error {
	return t.accounts.Create(ctx, t.tx, acct)
}
