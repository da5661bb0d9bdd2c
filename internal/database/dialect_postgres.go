package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	return rewritePlaceholdersToNumbered(query)
}

// SupportsLastInsertId is false: inserts need a RETURNING clause.
func (d *PostgresDialect) SupportsLastInsertId() bool {
	return false
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (d *PostgresDialect) MigrationsSubdir() string {
	return "postgres"
}

func (d *PostgresDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *PostgresDialect) UpsertSubscriberQuery() string {
	return `INSERT INTO subscribers (email, stripe_customer_id, subscribed, subscription_tier, subscription_end, updated_at)
		VALUES (?, ?, ?, ?, ?, NOW())
		ON CONFLICT (email) DO UPDATE SET
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			subscribed = EXCLUDED.subscribed,
			subscription_tier = EXCLUDED.subscription_tier,
			subscription_end = EXCLUDED.subscription_end,
			updated_at = NOW()`
}

func (d *PostgresDialect) UpsertSchoolQuery() string {
	return `INSERT INTO schools (user_id, name, city, state) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name, city = EXCLUDED.city, state = EXCLUDED.state,
			updated_at = NOW()`
}

func (d *PostgresDialect) ResetSequenceQuery(table string) string {
	return fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`, table)
}
