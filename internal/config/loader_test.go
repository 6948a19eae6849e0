package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "ml/weather_model.json.zst", cfg.Model.ArtifactPath)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.BaseURL)
	assert.Equal(t, 1.0, cfg.Geocode.UpstreamRPS)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Database.URL.Unmask())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_ARTIFACT_PATH", "/srv/models/v2.json.zst")
	t.Setenv("DATABASE_URL", "postgres://user:pw@localhost:5432/rainparade")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/srv/models/v2.json.zst", cfg.Model.ArtifactPath)
	assert.Equal(t, "postgres://user:pw@localhost:5432/rainparade", cfg.Database.URL.Unmask())
}

func TestLoadConfig_RejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production-ish")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_SecretRedaction(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://user:hunter2@db/rainparade")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// The secret must never surface through fmt.
	assert.NotContains(t, cfg.Database.URL.String(), "hunter2")
}
