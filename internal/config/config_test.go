package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "TOKEN_TTL", "CORS_ORIGINS", "SWEEP_INTERVAL", "REDIS_ADDR", "AMQP_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	c := FromEnv()
	assert.Equal(t, ModeOffline, c.Mode)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 12*time.Hour, c.TokenTTL)
	assert.Equal(t, time.Minute, c.SweepInterval)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3010"}, c.CORSOrigins)
	assert.Empty(t, c.RedisAddr)
	assert.Empty(t, c.AMQPURL)
	assert.Equal(t, "notifications.create", c.NotifyQueue)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MODE", "ONLINE")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("SWEEP_INTERVAL", "0s")
	t.Setenv("ALLOW_CLAIM_ROLE", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ORIGINS", " https://erp.example.edu , ,https://admin.example.edu")

	c := FromEnv()
	assert.Equal(t, ModeOnline, c.Mode)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, 30*time.Minute, c.TokenTTL)
	assert.Zero(t, c.SweepInterval)
	assert.True(t, c.AllowClaimRole)
	assert.Equal(t, 3, c.RedisDB)
	assert.Equal(t, []string{"https://erp.example.edu", "https://admin.example.edu"}, c.CORSOrigins)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9191\n"), 0o600))
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, ":9191", FromEnv().HTTPAddr)
}
