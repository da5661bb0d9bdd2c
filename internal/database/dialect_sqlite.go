package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN enables foreign keys, WAL and a busy timeout on every pooled connection.
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	params := "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	if strings.Contains(config.Path, "?") {
		return config.Path + "&" + params
	}
	return "file:" + config.Path + "?" + params
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) UpsertSubscriberQuery() string {
	return `INSERT INTO subscribers (email, stripe_customer_id, subscribed, subscription_tier, subscription_end, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(email) DO UPDATE SET
			stripe_customer_id = excluded.stripe_customer_id,
			subscribed = excluded.subscribed,
			subscription_tier = excluded.subscription_tier,
			subscription_end = excluded.subscription_end,
			updated_at = CURRENT_TIMESTAMP`
}

func (d *SQLiteDialect) UpsertSchoolQuery() string {
	return `INSERT INTO schools (user_id, name, city, state) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name, city = excluded.city, state = excluded.state,
			updated_at = CURRENT_TIMESTAMP`
}

// ResetSequenceQuery is empty: AUTOINCREMENT follows the largest inserted id.
func (d *SQLiteDialect) ResetSequenceQuery(string) string {
	return ""
}
