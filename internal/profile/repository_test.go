package profile_test

import (
	"context"
	"os"
	"testing"
	"time"

	"college-erp/common/metrics"
	"college-erp/internal/account"
	"college-erp/internal/profile"
	"college-erp/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testdb.Shutdown()
	os.Exit(code)
}

func TestRepository(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	ctx := context.Background()
	repo := profile.NewRepository(pg.DB, metrics.NewMock())

	t.Run("EnsureExistsInsertsOnce", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB)

		first := &profile.StudentProfile{
			StudentID:     "S1",
			Name:          "alice",
			Email:         "a@x.com",
			AdmissionDate: time.Date(2022, 8, 15, 0, 0, 0, 0, time.UTC),
		}
		created, err := repo.EnsureExists(ctx, pg.DB, first)
		require.NoError(t, err)
		assert.True(t, created)

		second := &profile.StudentProfile{
			StudentID:     "S1",
			Name:          "someone else",
			Email:         "b@x.com",
			AdmissionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		created, err = repo.EnsureExists(ctx, pg.DB, second)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := repo.Get(ctx, account.RoleStudent, "S1")
		require.NoError(t, err)
		sp := got.(*profile.StudentProfile)
		assert.Equal(t, "alice", sp.Name)
		assert.Equal(t, "a@x.com", sp.Email)
		assert.Equal(t, "2022-08-15", sp.AdmissionDate.Format("2006-01-02"))
	})

	t.Run("KeysAreScopedPerRole", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB)

		joined := time.Date(2019, 1, 7, 0, 0, 0, 0, time.UTC)
		created, err := repo.EnsureExists(ctx, pg.DB, &profile.FacultyProfile{FacultyID: "X1", Name: "f", Email: "f@x.com", DateOfJoining: joined})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.EnsureExists(ctx, pg.DB, &profile.AdminProfile{AdminID: "X1", Name: "a", Email: "a@x.com", DateOfJoining: joined})
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB)

		_, err := repo.Get(ctx, account.RoleFaculty, "missing")
		assert.ErrorIs(t, err, profile.ErrProfileNotFound)
	})
}
