package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/authvault/authvault/internal/common"
	"github.com/authvault/authvault/internal/server/models"
)

// newSQLiteManager opens a shared in-memory database, runs the real
// migrations and returns the manager. Each test gets its own database,
// named after the test.
func newSQLiteManager(t *testing.T) (*sql.DB, RepositoryManager) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m, err := NewSQLiteRepositoryManager(db)
	if err != nil {
		t.Fatalf("NewSQLiteRepositoryManager error: %v", err)
	}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	return db, m
}

func mustCreateUser(t *testing.T, m RepositoryManager, db *sql.DB, id, email string) *models.User {
	t.Helper()
	u, err := m.Users(db).Create(context.Background(), &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: "$2b$12$fakefakefakefakefakefake",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("create user error: %v", err)
	}
	return u
}

func TestSQLiteManager_MigrationsCreateSchema(t *testing.T) {
	db, _ := newSQLiteManager(t)

	for _, table := range []string{"users", "refresh_tokens", "goose_db_version"} {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("table %q missing after migrations: %v", table, err)
		}
	}
}

func TestSQLiteManager_UserRoundTrip(t *testing.T) {
	db, m := newSQLiteManager(t)
	ctx := context.Background()
	repo := m.Users(db)

	created := mustCreateUser(t, m, db, "u1", "alice@example.com")

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if byEmail.ID != created.ID || byEmail.PasswordHash != created.PasswordHash {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	byID, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}

	_, err = repo.Create(ctx, &models.User{
		ID: "u2", Email: "alice@example.com", PasswordHash: "x", CreatedAt: time.Now(),
	})
	if !errors.Is(err, common.ErrEmailTaken) {
		t.Fatalf("want common.ErrEmailTaken, got %v", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want 1 user, got %d", len(all))
	}
}

func TestSQLiteManager_TokenLifecycle(t *testing.T) {
	db, m := newSQLiteManager(t)
	ctx := context.Background()
	repo := m.RefreshTokens(db)

	mustCreateUser(t, m, db, "u1", "alice@example.com")

	now := time.Now()
	first := &models.RefreshToken{
		ID:        "t1",
		UserID:    "u1",
		TokenHash: "hash-one",
		ExpiresAt: now.Add(30 * 24 * time.Hour),
		CreatedAt: now.Add(-time.Minute),
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	dup := *first
	dup.ID = "t-dup"
	if err := repo.Create(ctx, &dup); !errors.Is(err, common.ErrDuplicateToken) {
		t.Fatalf("want common.ErrDuplicateToken, got %v", err)
	}

	found, err := repo.FindByHash(ctx, "hash-one")
	if err != nil {
		t.Fatalf("FindByHash error: %v", err)
	}
	if found.ID != "t1" || found.Revoked {
		t.Fatalf("unexpected row: %+v", found)
	}
	if found.ExpiresAt.UnixMilli() != first.ExpiresAt.UnixMilli() {
		t.Fatalf("expires_at not preserved: want %d, got %d",
			first.ExpiresAt.UnixMilli(), found.ExpiresAt.UnixMilli())
	}

	won, err := repo.RevokeIfActive(ctx, "t1")
	if err != nil {
		t.Fatalf("RevokeIfActive error: %v", err)
	}
	if !won {
		t.Fatal("first revoke should win")
	}

	won, err = repo.RevokeIfActive(ctx, "t1")
	if err != nil {
		t.Fatalf("RevokeIfActive error: %v", err)
	}
	if won {
		t.Fatal("second revoke must lose")
	}

	found, err = repo.FindByHash(ctx, "hash-one")
	if err != nil {
		t.Fatalf("FindByHash error: %v", err)
	}
	if !found.Revoked {
		t.Fatal("row should stay in the ledger, marked revoked")
	}

	if err := repo.Revoke(ctx, "t1"); err != nil {
		t.Fatalf("Revoke must stay idempotent: %v", err)
	}

	second := &models.RefreshToken{
		ID:        "t2",
		UserID:    "u1",
		TokenHash: "hash-two",
		ExpiresAt: now.Add(30 * 24 * time.Hour),
		CreatedAt: now,
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	n, err := repo.RevokeAllForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("RevokeAllForUser error: %v", err)
	}
	if n != 1 {
		t.Fatalf("only the active token should flip, got %d", n)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 2 || all[0].ID != "t2" {
		t.Fatalf("want newest first, got %+v", all)
	}
}

func TestSQLiteManager_DeletingUserCascades(t *testing.T) {
	db, m := newSQLiteManager(t)
	ctx := context.Background()

	mustCreateUser(t, m, db, "u1", "alice@example.com")
	if err := m.RefreshTokens(db).Create(ctx, &models.RefreshToken{
		ID:        "t1",
		UserID:    "u1",
		TokenHash: "hash-one",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, "u1"); err != nil {
		t.Fatalf("delete user error: %v", err)
	}

	if _, err := m.RefreshTokens(db).FindByHash(ctx, "hash-one"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("token should be gone with its user, got %v", err)
	}
}
