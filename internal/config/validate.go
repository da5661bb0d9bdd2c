package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks business rules that env tags cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Type) {
	case "sqlite", "sqlite3", "":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres", "postgresql", "mysql":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for %s", c.Database.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if c.App.AlertLookbackDays < 1 {
		return fmt.Errorf("app.alert_lookback_days must be >= 1 (got %d)", c.App.AlertLookbackDays)
	}
	if c.App.NotificationsLimit < 1 {
		return fmt.Errorf("app.notifications_limit must be >= 1 (got %d)", c.App.NotificationsLimit)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}

	return nil
}

// HasGoogleOAuth reports whether Google login is configured.
func (c *Config) HasGoogleOAuth() bool {
	return c.Auth.GoogleClientID != "" && c.Auth.GoogleClientSecret != ""
}
