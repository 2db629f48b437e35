package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "postgres")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "3000", cfg.Port)
	require.Equal(t, "/api/v1", cfg.APIPrefix)
	require.Equal(t, 10, cfg.LowStockThreshold)
	require.Equal(t, 30, cfg.ExpiringSoonDays)
	require.Equal(t, 7, cfg.CriticalExpiryDays)
	require.Equal(t, 90, cfg.ExpirationWindowDays)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8001")
	t.Setenv("LOW_STOCK_THRESHOLD", "25")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "8001", cfg.Port)
	require.Equal(t, 25, cfg.LowStockThreshold)
	require.Equal(t, 90*time.Second, cfg.CacheTTL)
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", DefaultJWTSecret)

	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
}

func TestRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: " http://a.test , ,http://b.test"}
	require.Equal(t, "http://a.test,http://b.test", cfg.AllowedOrigins())
}
