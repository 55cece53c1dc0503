package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"college-erp/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, env, body string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config."+env+".yaml"), []byte(body), 0o600))
	t.Setenv("ENV", env)
	t.Setenv("CONFIG_PATH", dir)
}

func TestLoad(t *testing.T) {
	t.Run("FileValuesAndDefaults", func(t *testing.T) {
		writeConfig(t, "unittest", `
server:
  port: "9090"
database:
  host: db.internal
  name: erp
auth:
  jwt_secret: file-secret
events:
  driver: nats
  nats:
    url: nats://nats:4222
`)

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "unittest", cfg.Env)
		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, "erp", cfg.Database.DBName)
		assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
		assert.Equal(t, "college-erp", cfg.Auth.JWTIssuer)
		assert.Equal(t, 15, cfg.Auth.AccessTokenMinutes)
		assert.Equal(t, "nats", cfg.Events.Driver)
		assert.Equal(t, "college-erp.auth.events", cfg.Events.NATS.Subject)
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		writeConfig(t, "unittest", `
auth:
  jwt_secret: file-secret
database:
  user: file-user
`)
		t.Setenv("JWT_SECRET", "env-secret")
		t.Setenv("DB_USER", "env-user")
		t.Setenv("SERVER_PORT", "7070")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
		assert.Equal(t, "env-user", cfg.Database.User)
		assert.Equal(t, "7070", cfg.Server.Port)
	})

	t.Run("MissingSecret", func(t *testing.T) {
		writeConfig(t, "unittest", `
server:
  port: "8080"
`)
		t.Setenv("JWT_SECRET", "")

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_secret")
	})

	t.Run("UnknownEventsDriver", func(t *testing.T) {
		writeConfig(t, "unittest", `
auth:
  jwt_secret: s
events:
  driver: rabbit
`)

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbit")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Auth: config.AuthConfig{
				JWTSecret:          "s",
				AccessTokenMinutes: 15,
				RefreshTokenHours:  1,
				BcryptCost:         10,
			},
			RateLimit: config.RateLimitConfig{RequestsPerMinute: 30, Burst: 10},
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("BcryptCostOutOfRange", func(t *testing.T) {
		for _, cost := range []int{0, 3, 32} {
			cfg := valid()
			cfg.Auth.BcryptCost = cost

			err := cfg.Validate()
			require.Error(t, err, "cost %d", cost)
			assert.Contains(t, err.Error(), "bcrypt_cost")
		}
	})

	t.Run("ZeroRequestsPerMinute", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.RequestsPerMinute = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requests_per_minute")
	})

	t.Run("NegativeBurst", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.Burst = -1

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "burst")
	})
}

func TestAuthConfig_TTLs(t *testing.T) {
	a := config.AuthConfig{AccessTokenMinutes: 15, RefreshTokenHours: 168}
	assert.Equal(t, "15m0s", a.AccessTokenTTL().String())
	assert.Equal(t, "168h0m0s", a.RefreshTokenTTL().String())
}
