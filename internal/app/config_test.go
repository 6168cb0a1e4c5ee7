package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("CSRF_SECRET", "s3cret")
	t.Setenv("BACKEND_BASE_URL", "http://backend.internal:8000/api")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "dashboard", cfg.RedisPrefix)
	assert.Equal(t, "dashboard_session", cfg.SessionCookie)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Second, cfg.BootstrapWait)
	assert.Equal(t, 10, cfg.LoginLimitPerMinute)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresCSRFSecret(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("CSRF_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{CSRFSecret: "x", BackendBaseURL: "https://api.example.com", SessionTTL: time.Hour}
	require.NoError(t, valid.Validate())

	relative := valid
	relative.BackendBaseURL = "/api"
	assert.ErrorContains(t, relative.Validate(), "must be absolute")

	noTTL := valid
	noTTL.SessionTTL = 0
	assert.Error(t, noTTL.Validate())
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
	assert.False(t, (*Config)(nil).IsProduction())
}
