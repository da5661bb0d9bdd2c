package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// DSN adds parseTime so DATE and DATETIME columns scan into time.Time, and
// multiStatements so migration files can run in one Exec.
func (d *MySQLDialect) DSN(config DialectConfig) string {
	sep := "?"
	if strings.Contains(config.URL, "?") {
		sep = "&"
	}
	return config.URL + sep + "parseTime=true&loc=UTC&multiStatements=true"
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	return query
}

func (d *MySQLDialect) SupportsLastInsertId() bool {
	return true
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1;"); err != nil {
		return err
	}
	return nil
}

func (d *MySQLDialect) MigrationsSubdir() string {
	return "mysql"
}

func (d *MySQLDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
		);
	`
}

func (d *MySQLDialect) UpsertSubscriberQuery() string {
	return "INSERT INTO subscribers (email, stripe_customer_id, subscribed, subscription_tier, subscription_end, updated_at) " +
		"VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP) " +
		"ON DUPLICATE KEY UPDATE stripe_customer_id = VALUES(stripe_customer_id), subscribed = VALUES(subscribed), " +
		"subscription_tier = VALUES(subscription_tier), subscription_end = VALUES(subscription_end), updated_at = CURRENT_TIMESTAMP"
}

func (d *MySQLDialect) UpsertSchoolQuery() string {
	return "INSERT INTO schools (user_id, name, city, state) VALUES (?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE name = VALUES(name), city = VALUES(city), state = VALUES(state), updated_at = CURRENT_TIMESTAMP"
}

// ResetSequenceQuery is empty: AUTO_INCREMENT follows the largest inserted id.
func (d *MySQLDialect) ResetSequenceQuery(string) string {
	return ""
}
