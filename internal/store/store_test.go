// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"coursecatalog/internal/database"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "catalog")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "catalog")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// uniq returns a prefix-tagged random suffix so parallel runs sharing one
// database do not collide.
func uniq(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

// cleanUsers removes test users by email. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// cleanCourses removes test courses whose slug starts with prefix.
func cleanCourses(t *testing.T, db *sql.DB, prefix string) {
	t.Helper()
	db.Exec("DELETE FROM courses WHERE slug LIKE $1", prefix+"%")
}

// cleanCategories removes test categories whose slug starts with prefix.
func cleanCategories(t *testing.T, db *sql.DB, prefix string) {
	t.Helper()
	db.Exec("DELETE FROM course_categories WHERE slug LIKE $1", prefix+"%")
}

// cleanTags removes test tags whose slug starts with prefix.
func cleanTags(t *testing.T, db *sql.DB, prefix string) {
	t.Helper()
	db.Exec("DELETE FROM course_tags WHERE slug LIKE $1", prefix+"%")
}
