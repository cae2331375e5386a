package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Clinic.OpeningHour)
	assert.Equal(t, 18, cfg.Clinic.ClosingHour)
	assert.Equal(t, 60*time.Minute, cfg.Clinic.ConflictWindow)
	assert.Equal(t, "America/Mexico_City", cfg.Clinic.Location().String())
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Address())
	assert.False(t, cfg.Mongo.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CLINIC_TIMEZONE", "UTC")
	t.Setenv("CLINIC_CONFLICT_WINDOW", "45m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.UTC, cfg.Clinic.Location())
	assert.Equal(t, 45*time.Minute, cfg.Clinic.ConflictWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 3000, cfg.Server.Port, "unparseable values fall back to the default")
}

func TestValidateAggregatesErrors(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_SSLMODE", "disable")
	t.Setenv("CLINIC_TIMEZONE", "Nowhere/Atlantis")
	t.Setenv("CLINIC_OPENING_HOUR", "19")

	_, err := Load()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "JWT_SECRET must be at least 32 characters")
	assert.Contains(t, msg, "DB_PASSWORD is required")
	assert.Contains(t, msg, "DB_SSLMODE=disable")
	assert.Contains(t, msg, "CLINIC_TIMEZONE")
	assert.Contains(t, msg, "CLINIC_OPENING_HOUR")
}

func TestValidateRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}
