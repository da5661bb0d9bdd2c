package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"emotiva/internal/database"
	"emotiva/internal/models"
	"emotiva/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolp(b bool) *bool { return &b }

func intp(i int) *int { return &i }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "emotiva.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), "../../migrations"))
	return db
}

func createUser(t *testing.T, db *database.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: "User " + email, Role: role, PasswordHash: "hash"}
	require.NoError(t, repository.NewUserRepository(db).CreateUser(context.Background(), u))
	return u
}
