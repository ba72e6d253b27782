// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"coursecatalog/internal/cache"
	"coursecatalog/internal/database"
	"coursecatalog/internal/middleware"
	"coursecatalog/internal/models"
	"coursecatalog/internal/render"
	"coursecatalog/internal/session"
	"coursecatalog/internal/store"
)

const testSalt = "test-salt"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "catalog")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "catalog")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"session:*", "page:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// memBucket is an in-memory storage.Bucket.
type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemBucket() *memBucket {
	return &memBucket{objects: make(map[string][]byte)}
}

const memBucketURL = "https://bucket.test/"

func (b *memBucket) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return b.FileURL(key), nil
}

func (b *memBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *memBucket) FileURL(key string) string { return memBucketURL + key }

func (b *memBucket) ExtractKey(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, memBucketURL) {
		return "", false
	}
	return strings.TrimPrefix(rawURL, memBucketURL), true
}

func (b *memBucket) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB         *sql.DB
	Valkey     *redis.Client
	Renderer   *render.Renderer
	Sessions   *session.Store
	Categories *store.CategoryStore
	Tags       *store.TagStore
	Courses    *store.CourseStore
	Clicks     *store.ClickStore
	Users      *store.UserStore
	PageCache  *cache.PageCache
	Bucket     *memBucket
	Admin      *Admin
	Auth       *Auth
	Public     *Public
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	renderer, err := render.New(true)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	env := &testEnv{
		DB:         db,
		Valkey:     vk,
		Renderer:   renderer,
		Sessions:   session.NewStore(vk, false),
		Categories: store.NewCategoryStore(db),
		Tags:       store.NewTagStore(db),
		Courses:    store.NewCourseStore(db),
		Clicks:     store.NewClickStore(db),
		Users:      store.NewUserStore(db),
		PageCache:  cache.NewPageCache(vk, time.Minute),
		Bucket:     newMemBucket(),
	}
	env.Admin = NewAdmin(renderer, env.Categories, env.Tags, env.Courses, env.Clicks, env.Bucket, env.PageCache)
	env.Auth = NewAuth(renderer, env.Sessions, env.Users)
	env.Public = NewPublic(renderer, env.Categories, env.Courses, env.Clicks, env.PageCache, testSalt)
	return env
}

// uniq returns a prefix-tagged random suffix so runs sharing one database
// do not collide.
func uniq(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

// createCategory inserts a category and removes it, with its courses, when
// the test ends.
func (env *testEnv) createCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: uniq("cat")}
	if err := env.Categories.Create(context.Background(), c, false); err != nil {
		t.Fatalf("create category: %v", err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM courses WHERE category_id = $1", c.ID)
		env.DB.Exec("DELETE FROM course_categories WHERE id = $1", c.ID)
	})
	return c
}

// createTag inserts a tag and removes it when the test ends.
func (env *testEnv) createTag(t *testing.T, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: uniq("tag")}
	if err := env.Tags.Create(context.Background(), tag, false); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	t.Cleanup(func() { env.DB.Exec("DELETE FROM course_tags WHERE id = $1", tag.ID) })
	return tag
}

// createCourse inserts a course in category. Cleanup happens through the
// category.
func (env *testEnv) createCourse(t *testing.T, category *models.Category, published bool, tags ...uuid.UUID) *models.Course {
	t.Helper()
	pay := "https://pay.example.com/" + uuid.NewString()
	c := &models.Course{
		Title:            "Curso de teste",
		Slug:             uniq("curso"),
		ShortDescription: "Resumo do curso",
		FullDescription:  "# Conteúdo\n\nTexto **em destaque**.\n\n<script>alert(1)</script>",
		PaymentURL:       &pay,
		CategoryID:       &category.ID,
		IsPublished:      published,
	}
	if err := env.Courses.Create(context.Background(), c, tags, false); err != nil {
		t.Fatalf("create course: %v", err)
	}
	return c
}

// createUser inserts a user with the given roles and removes it when the
// test ends.
func (env *testEnv) createUser(t *testing.T, password string, roles ...models.Role) *models.User {
	t.Helper()
	ctx := context.Background()
	email := uniq("user") + "@catalog.test"
	u, err := env.Users.Create(ctx, email, password, "Usuário de teste")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { env.DB.Exec("DELETE FROM users WHERE id = $1", u.ID) })
	for _, role := range roles {
		if err := env.Users.GrantRole(ctx, u.ID, role); err != nil {
			t.Fatalf("grant role: %v", err)
		}
	}
	u.Roles = roles
	return u
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// testSession creates an admin session.Data for testing.
func testSession(userID uuid.UUID, email string, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      userID,
		Email:       email,
		DisplayName: "Test User",
		Roles:       []models.Role{models.RoleAdmin},
		Needs2FA:    !twoFADone,
		TwoFADone:   twoFADone,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withChiURLParamAndSession adds both chi URL param and session to a request.
func withChiURLParamAndSession(r *http.Request, key, value string, sess *session.Data) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.SessionKey, sess)
	return r.WithContext(ctx)
}

// sessionCookie returns the session cookie set on a response, or nil.
func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	return nil
}
