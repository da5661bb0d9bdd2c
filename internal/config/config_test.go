package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "./emotiva.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionDuration)
	assert.Equal(t, 3, cfg.App.AlertLookbackDays)
	assert.Equal(t, 20, cfg.App.NotificationsLimit)
	assert.Equal(t, testSecret, cfg.Auth.CSRFSecret, "csrf secret falls back to jwt secret")
	assert.Equal(t, time.UTC, cfg.App.Location())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: "9090"
app:
  timezone: UTC
  alert_lookback_days: 5
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.App.AlertLookbackDays)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Type: "sqlite", Path: "x.db"},
			Auth:     AuthConfig{JWTSecret: testSecret},
			App:      AppConfig{Timezone: "UTC", AlertLookbackDays: 3, NotificationsLimit: 20},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: true},
		{name: "postgres without url", mutate: func(c *Config) { c.Database.Type = "postgres" }, wantErr: true},
		{name: "postgres with url", mutate: func(c *Config) {
			c.Database.Type = "postgres"
			c.Database.URL = "postgres://localhost/emotiva"
		}},
		{name: "unknown db", mutate: func(c *Config) { c.Database.Type = "oracle" }, wantErr: true},
		{name: "zero lookback", mutate: func(c *Config) { c.App.AlertLookbackDays = 0 }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.App.Timezone = "Mars/Olympus" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
