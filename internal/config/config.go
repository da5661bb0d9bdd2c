package config

import (
	"time"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Email    EmailConfig    `yaml:"email"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Log      LogConfig      `yaml:"log"`
	App      AppConfig      `yaml:"app"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig selects the SQL dialect and connection target.
// Path is used by sqlite, URL by postgres and mysql.
type DatabaseConfig struct {
	Type           string `yaml:"type"            env:"DB_TYPE"         env-default:"sqlite"`
	Path           string `yaml:"path"            env:"DB_PATH"         env-default:"./emotiva.db"`
	URL            string `yaml:"url"             env:"DATABASE_URL"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// AuthConfig holds session, token and OAuth settings.
type AuthConfig struct {
	SessionDuration    time.Duration `yaml:"session_duration"     env:"SESSION_DURATION"     env-default:"24h"`
	JWTSecret          string        `yaml:"jwt_secret"           env:"JWT_SECRET"           env-required:"true"`
	JWTIssuer          string        `yaml:"jwt_issuer"           env:"JWT_ISSUER"           env-default:"emotiva"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl"     env:"ACCESS_TOKEN_TTL"     env-default:"1h"`
	CSRFSecret         string        `yaml:"csrf_secret"          env:"CSRF_SECRET"`
	GoogleClientID     string        `yaml:"google_client_id"     env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	OAuthRedirectBase  string        `yaml:"oauth_redirect_base"  env:"OAUTH_REDIRECT_BASE_URL"`
	LoginRatePerMinute int           `yaml:"login_rate"           env:"LOGIN_RATE_PER_MINUTE" env-default:"10"`
}

// EmailConfig configures SES delivery. An empty FromEmail disables sending.
type EmailConfig struct {
	AWSRegion string `yaml:"aws_region" env:"AWS_REGION"     env-default:"us-east-1"`
	FromEmail string `yaml:"from_email" env:"SES_FROM_EMAIL"`
	FromName  string `yaml:"from_name"  env:"SES_FROM_NAME"  env-default:"Emotiva"`
	Debug     bool   `yaml:"debug"      env:"EMAIL_DEBUG"    env-default:"false"`
}

// StripeConfig configures billing. An empty SecretKey disables checkout and portal.
type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"     env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	PremiumPrice  string `yaml:"premium_price"  env:"STRIPE_PREMIUM_PRICE_ID"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// AppConfig holds domain settings.
type AppConfig struct {
	BaseURL            string `yaml:"base_url"             env:"APP_BASE_URL"        env-default:"http://localhost:8080"`
	Timezone           string `yaml:"timezone"             env:"APP_TIMEZONE"        env-default:"America/Sao_Paulo"`
	AlertLookbackDays  int    `yaml:"alert_lookback_days"  env:"ALERT_LOOKBACK_DAYS" env-default:"3"`
	NotificationsLimit int    `yaml:"notifications_limit"  env:"NOTIFICATIONS_LIMIT" env-default:"20"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type,X-CSRF-Token"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// Location resolves the configured time zone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
