package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationsDir = "../../migrations"

func openMigrated(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Open(filepath.Join(t.TempDir(), "emotiva.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(context.Background(), migrationsDir))
	return db
}

func TestMigrationsCreateSchema(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()

	tables := []string{
		"users", "sessions", "password_reset_tokens", "children", "checkins",
		"notifications", "psychologists", "shared_reports", "schools", "classes",
		"students", "student_checkins", "invitations", "subscribers",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	// Second run is a no-op.
	require.NoError(t, db.RunMigrations(ctx, migrationsDir))
	var count int
	require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCheckinUniquePerChildAndDay(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()

	userID, err := db.ExecReturningID(ctx, "INSERT INTO users (email, name) VALUES (?, ?)", "g@example.com", "Guardian")
	require.NoError(t, err)
	childID, err := db.ExecReturningID(ctx, "INSERT INTO children (guardian_id, name, age) VALUES (?, ?, ?)", userID, "Sofia", 7)
	require.NoError(t, err)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	insert := "INSERT INTO checkins (child_id, chosen_date, mood, note, observations) VALUES (?, ?, ?, '', '')"

	_, err = db.Exec(ctx, insert, childID, day, "happy")
	require.NoError(t, err)

	_, err = db.Exec(ctx, insert, childID, day, "sad")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestWithTx(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		err := db.WithTx(ctx, func(tx *Tx) error {
			_, err := tx.ExecReturningID(ctx, "INSERT INTO users (email, name) VALUES (?, ?)", "a@example.com", "A")
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", "a@example.com").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTx(ctx, func(tx *Tx) error {
			if _, err := tx.Exec(ctx, "INSERT INTO users (email, name) VALUES (?, ?)", "b@example.com", "B"); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		var count int
		require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", "b@example.com").Scan(&count))
		assert.Equal(t, 0, count)
	})
}

func TestIsUniqueViolation_Nil(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}
