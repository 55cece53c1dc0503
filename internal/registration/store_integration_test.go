package registration_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"college-erp/common/metrics"
	"college-erp/internal/account"
	"college-erp/internal/profile"
	"college-erp/internal/registration"
	"college-erp/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testdb.Shutdown()
	os.Exit(code)
}

func setupPostgresStore(t *testing.T) (registration.Store, *bun.DB) {
	t.Helper()

	pg := testdb.SetupSharedPostgres(t)
	testdb.CleanupTables(t, pg.DB)

	m := metrics.NewMock()
	store := registration.NewStore(pg.DB,
		account.NewRepository(pg.DB, m),
		profile.NewRepository(pg.DB, m),
		m,
	)
	return store, pg.DB
}

func countRows(t *testing.T, db *bun.DB, model interface{}) int {
	t.Helper()
	n, err := db.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestRegister_Postgres(t *testing.T) {
	ctx := context.Background()

	t.Run("StudentRowsPersisted", func(t *testing.T) {
		store, db := setupPostgresStore(t)
		svc := newTestService(store)

		req := studentRequest()
		req.DateOfBirth = "2003-05-04"
		summary, err := svc.Register(ctx, req)
		require.NoError(t, err)

		var acct account.Account
		require.NoError(t, db.NewSelect().Model(&acct).Where("id = ?", summary.ID).Scan(ctx))
		assert.Equal(t, account.RoleStudent, acct.Role)
		assert.True(t, acct.Status)
		require.NotNil(t, acct.StudentID)
		assert.Equal(t, "S1", *acct.StudentID)
		assert.Nil(t, acct.FacultyID)
		assert.Nil(t, acct.AdminID)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte("pw123")))

		var sp profile.StudentProfile
		require.NoError(t, db.NewSelect().Model(&sp).Where("student_id = ?", "S1").Scan(ctx))
		assert.Equal(t, "alice", sp.Name)
		assert.Equal(t, "a@x.com", sp.Email)
		require.NotNil(t, sp.DateOfBirth)
		assert.Equal(t, "2003-05-04", sp.DateOfBirth.Format("2006-01-02"))
		assert.Nil(t, sp.CourseID)
	})

	t.Run("DuplicateEmailLeavesCountsUnchanged", func(t *testing.T) {
		store, db := setupPostgresStore(t)
		svc := newTestService(store)

		_, err := svc.Register(ctx, studentRequest())
		require.NoError(t, err)

		req := studentRequest()
		req.StudentID = "S2"
		_, err = svc.Register(ctx, req)
		assert.ErrorIs(t, err, registration.ErrDuplicateEmail)

		assert.Equal(t, 1, countRows(t, db, (*account.Account)(nil)))
		assert.Equal(t, 1, countRows(t, db, (*profile.StudentProfile)(nil)))
	})

	t.Run("ExistingProfileUnchanged", func(t *testing.T) {
		store, db := setupPostgresStore(t)
		svc := newTestService(store)

		admitted := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
		_, err := db.NewInsert().Model(&profile.StudentProfile{
			StudentID:     "S1",
			Name:          "Registrar Entry",
			Email:         "office@x.com",
			AdmissionDate: admitted,
		}).Exec(ctx)
		require.NoError(t, err)

		req := studentRequest()
		req.Name = "Alice"
		req.AdmissionDate = "2024-01-01"
		_, err = svc.Register(ctx, req)
		require.NoError(t, err)

		var sp profile.StudentProfile
		require.NoError(t, db.NewSelect().Model(&sp).Where("student_id = ?", "S1").Scan(ctx))
		assert.Equal(t, "Registrar Entry", sp.Name)
		assert.Equal(t, "office@x.com", sp.Email)
		assert.True(t, admitted.Equal(sp.AdmissionDate))
		assert.Equal(t, 1, countRows(t, db, (*profile.StudentProfile)(nil)))
		assert.Equal(t, 1, countRows(t, db, (*account.Account)(nil)))
	})

	t.Run("ConcurrentSameEmail", func(t *testing.T) {
		store, db := setupPostgresStore(t)
		svc := newTestService(store)

		const attempts = 5
		errs := make([]error, attempts)
		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				req := studentRequest()
				req.StudentID = fmt.Sprintf("S%d", i)
				_, errs[i] = svc.Register(ctx, req)
			}(i)
		}
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, registration.ErrDuplicateEmail)
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, countRows(t, db, (*account.Account)(nil)))
		assert.Equal(t, 1, countRows(t, db, (*profile.StudentProfile)(nil)))
	})

	t.Run("ConcurrentSameStudentID", func(t *testing.T) {
		store, db := setupPostgresStore(t)
		svc := newTestService(store)

		const attempts = 5
		errs := make([]error, attempts)
		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				req := studentRequest()
				req.Username = fmt.Sprintf("alice%d", i)
				req.Email = fmt.Sprintf("a%d@x.com", i)
				_, errs[i] = svc.Register(ctx, req)
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, attempts, countRows(t, db, (*account.Account)(nil)))
		assert.Equal(t, 1, countRows(t, db, (*profile.StudentProfile)(nil)))

		linked, err := db.NewSelect().Model((*account.Account)(nil)).Where("student_id = ?", "S1").Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, attempts, linked)
	})
}

func TestWithinTransaction_Postgres(t *testing.T) {
	ctx := context.Background()

	newProfile := func() profile.Profile {
		return &profile.FacultyProfile{
			FacultyID:     "F1",
			Name:          "bob",
			Email:         "b@x.com",
			DateOfJoining: time.Date(2019, 1, 7, 0, 0, 0, 0, time.UTC),
		}
	}

	t.Run("ErrorRollsBack", func(t *testing.T) {
		store, db := setupPostgresStore(t)

		boom := errors.New("boom")
		err := store.WithinTransaction(ctx, func(ctx context.Context, tx registration.Tx) error {
			created, err := tx.EnsureProfile(ctx, newProfile())
			require.NoError(t, err)
			assert.True(t, created)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, countRows(t, db, (*profile.FacultyProfile)(nil)))
	})

	t.Run("PanicRollsBack", func(t *testing.T) {
		store, db := setupPostgresStore(t)

		assert.Panics(t, func() {
			_ = store.WithinTransaction(ctx, func(ctx context.Context, tx registration.Tx) error {
				_, err := tx.EnsureProfile(ctx, newProfile())
				require.NoError(t, err)
				panic("unexpected")
			})
		})
		assert.Zero(t, countRows(t, db, (*profile.FacultyProfile)(nil)))
	})

	t.Run("AccountFailureRollsBackProfile", func(t *testing.T) {
		store, db := setupPostgresStore(t)

		acct := &account.Account{
			Username:     "bob",
			Email:        "b@x.com",
			PasswordHash: "x",
			Status:       true,
		}
		// role and reference disagree, rejected by the check constraint
		acct.LinkProfile(account.RoleFaculty, "F1")
		acct.Role = account.RoleStudent

		err := store.WithinTransaction(ctx, func(ctx context.Context, tx registration.Tx) error {
			if _, err := tx.EnsureProfile(ctx, newProfile()); err != nil {
				return err
			}
			return tx.CreateAccount(ctx, acct)
		})
		require.Error(t, err)
		assert.Zero(t, countRows(t, db, (*profile.FacultyProfile)(nil)))
		assert.Zero(t, countRows(t, db, (*account.Account)(nil)))
	})
}
