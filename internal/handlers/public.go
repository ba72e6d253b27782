// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"coursecatalog/internal/cache"
	"coursecatalog/internal/markdown"
	"coursecatalog/internal/middleware"
	"coursecatalog/internal/models"
	"coursecatalog/internal/render"
	"coursecatalog/internal/store"
)

// maxUserAgentLen truncates stored user agents.
const maxUserAgentLen = 512

// errPageNotFound is returned by page builders when the resource is missing
// or not published.
var errPageNotFound = errors.New("page not found")

// Public groups handlers for the public catalog. Rendered pages are kept
// in the Valkey page cache until an admin write invalidates them.
type Public struct {
	renderer   *render.Renderer
	categories *store.CategoryStore
	courses    *store.CourseStore
	clicks     *store.ClickStore
	pageCache  *cache.PageCache
	salt       string
}

// NewPublic creates a new Public handler group. salt is mixed into the
// hashed client address of recorded clicks.
func NewPublic(renderer *render.Renderer, categories *store.CategoryStore, courses *store.CourseStore, clicks *store.ClickStore, pageCache *cache.PageCache, salt string) *Public {
	return &Public{
		renderer:   renderer,
		categories: categories,
		courses:    courses,
		clicks:     clicks,
		pageCache:  pageCache,
		salt:       salt,
	}
}

// Home lists the published courses, featured first, and the categories.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	p.cached(w, r, cache.HomeKey(), func(ctx context.Context) ([]byte, error) {
		courses, err := p.courses.ListPublished(ctx)
		if err != nil {
			return nil, err
		}
		categories, err := p.categories.ListWithPublishedCounts(ctx)
		if err != nil {
			return nil, err
		}
		return p.renderer.Public("home", &render.PublicData{
			Description: "Cursos disponíveis no catálogo.",
			Data:        map[string]any{"Courses": courses, "Categories": categories},
		})
	})
}

// Categories lists every category with its number of published courses.
func (p *Public) Categories(w http.ResponseWriter, r *http.Request) {
	p.cached(w, r, cache.CategoriesKey(), func(ctx context.Context) ([]byte, error) {
		categories, err := p.categories.ListWithPublishedCounts(ctx)
		if err != nil {
			return nil, err
		}
		return p.renderer.Public("categories", &render.PublicData{
			Title: "Categorias",
			Data:  map[string]any{"Categories": categories},
		})
	})
}

// Category shows one category and its published courses.
func (p *Public) Category(w http.ResponseWriter, r *http.Request) {
	slugParam := chi.URLParam(r, "slug")
	p.cached(w, r, cache.CategoryKey(slugParam), func(ctx context.Context) ([]byte, error) {
		category, err := p.categories.FindBySlug(ctx, slugParam)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, errPageNotFound
		}
		courses, err := p.courses.ListPublishedByCategory(ctx, category.ID)
		if err != nil {
			return nil, err
		}
		return p.renderer.Public("category", &render.PublicData{
			Title: category.Name,
			Data:  map[string]any{"Category": category, "Courses": courses},
		})
	})
}

// Course shows a published course with its category, tags and the full
// description rendered from markdown.
func (p *Public) Course(w http.ResponseWriter, r *http.Request) {
	slugParam := chi.URLParam(r, "slug")
	p.cached(w, r, cache.CourseKey(slugParam), func(ctx context.Context) ([]byte, error) {
		course, err := p.courses.FindPublishedBySlug(ctx, slugParam)
		if err != nil {
			return nil, err
		}
		if course == nil {
			return nil, errPageNotFound
		}
		body, err := markdown.ToHTML(course.FullDescription)
		if err != nil {
			return nil, err
		}
		return p.renderer.Public("course", &render.PublicData{
			Title:       course.Title,
			Description: course.ShortDescription,
			Data:        map[string]any{"Course": course, "Body": body},
		})
	})
}

// Enroll records a click on the enrolment button and sends the visitor to
// the course's payment page.
func (p *Public) Enroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slugParam := chi.URLParam(r, "slug")

	course, err := p.courses.FindPublishedBySlug(ctx, slugParam)
	if err != nil {
		serverError(w, "find course by slug failed", err, "slug", slugParam)
		return
	}
	if course == nil || !course.HasPaymentURL() {
		p.notFound(w, r)
		return
	}

	click := &models.Click{CourseID: course.ID}
	if ip := middleware.ClientIP(r); ip != "" {
		hash := p.hashIP(ip)
		click.IPHash = &hash
	}
	if ua := r.UserAgent(); ua != "" {
		if len(ua) > maxUserAgentLen {
			ua = strings.ToValidUTF8(ua[:maxUserAgentLen], "")
		}
		click.UserAgent = &ua
	}
	// A lost click must not block the visitor.
	if err := p.clicks.Record(ctx, click); err != nil {
		slog.Warn("record click failed", "error", err, "course_id", course.ID)
	}

	http.Redirect(w, r, *course.PaymentURL, http.StatusSeeOther)
}

// NotFound renders the catalog's 404 page.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.notFound(w, r)
}

func (p *Public) notFound(w http.ResponseWriter, r *http.Request) {
	html, err := p.renderer.Public("not_found", &render.PublicData{Title: "Página não encontrada"})
	if err != nil {
		slog.Error("render not found page failed", "error", err)
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusNotFound, html)
}

// cached writes the page stored under key, or builds it, stores it and
// writes it. Missing resources are not cached.
func (p *Public) cached(w http.ResponseWriter, r *http.Request, key string, build func(ctx context.Context) ([]byte, error)) {
	ctx := r.Context()
	if html, ok := p.pageCache.Get(ctx, key); ok {
		writeHTML(w, http.StatusOK, html)
		return
	}

	html, err := build(ctx)
	if errors.Is(err, errPageNotFound) {
		p.notFound(w, r)
		return
	}
	if err != nil {
		serverError(w, "render public page failed", err, "key", key)
		return
	}

	p.pageCache.Set(ctx, key, html)
	writeHTML(w, http.StatusOK, html)
}

// hashIP returns the salted SHA-256 of a client address, hex encoded.
func (p *Public) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(p.salt + ip))
	return hex.EncodeToString(sum[:])
}

func writeHTML(w http.ResponseWriter, status int, html []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(html)
}
