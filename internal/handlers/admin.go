// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the admin area, the sign-in
// flow and the public catalog.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"coursecatalog/internal/cache"
	"coursecatalog/internal/render"
	"coursecatalog/internal/slug"
	"coursecatalog/internal/storage"
	"coursecatalog/internal/store"
)

const (
	// statsWindow is the "recent" period shown on the dashboard.
	statsWindow = 7 * 24 * time.Hour

	// dashboardStatsLimit caps the per-course click table.
	dashboardStatsLimit = 20
)

// Admin groups all admin-related HTTP handlers and their dependencies.
type Admin struct {
	renderer   *render.Renderer
	categories *store.CategoryStore
	tags       *store.TagStore
	courses    *store.CourseStore
	clicks     *store.ClickStore
	bucket     storage.Bucket // nil when image uploads are disabled
	pageCache  *cache.PageCache
}

// NewAdmin creates a new Admin handler group. bucket may be nil if no
// storage driver is configured.
func NewAdmin(
	renderer *render.Renderer,
	categories *store.CategoryStore,
	tags *store.TagStore,
	courses *store.CourseStore,
	clicks *store.ClickStore,
	bucket storage.Bucket,
	pageCache *cache.PageCache,
) *Admin {
	return &Admin{
		renderer:   renderer,
		categories: categories,
		tags:       tags,
		courses:    courses,
		clicks:     clicks,
		bucket:     bucket,
		pageCache:  pageCache,
	}
}

// Dashboard renders the admin dashboard with catalog counts and click stats.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, published, err := a.courses.Count(ctx)
	if err != nil {
		serverError(w, "count courses failed", err)
		return
	}
	categoryCount, err := a.categories.Count(ctx)
	if err != nil {
		serverError(w, "count categories failed", err)
		return
	}
	tagCount, err := a.tags.Count(ctx)
	if err != nil {
		serverError(w, "count tags failed", err)
		return
	}

	since := time.Now().Add(-statsWindow)
	clickTotal, clickRecent, err := a.clicks.Totals(ctx, since)
	if err != nil {
		serverError(w, "click totals failed", err)
		return
	}
	stats, err := a.clicks.Stats(ctx, since, dashboardStatsLimit)
	if err != nil {
		serverError(w, "click stats failed", err)
		return
	}

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Painel",
		Section: "dashboard",
		Data: map[string]any{
			"CourseTotal":     total,
			"CoursePublished": published,
			"CategoryCount":   categoryCount,
			"TagCount":        tagCount,
			"ClickTotal":      clickTotal,
			"ClickRecent":     clickRecent,
			"Stats":           stats,
		},
	})
}

// SlugPreview answers with the slug a record would get right now. The
// result is informational: another save can take it first, and the write
// path resolves that on its own.
func (a *Admin) SlugPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var lookup slug.LookupFunc
	switch q.Get("tabela") {
	case "categorias":
		lookup = a.categories.SlugOwner
	case "tags":
		lookup = a.tags.SlugOwner
	case "cursos":
		lookup = a.courses.SlugOwner
	default:
		http.Error(w, "Tabela inválida", http.StatusBadRequest)
		return
	}

	// Forms send their own field; the explicit parameter wins.
	name := q.Get("nome")
	for _, field := range []string{"name", "title"} {
		if name == "" {
			name = q.Get(field)
		}
	}

	var existingID *uuid.UUID
	if id, err := uuid.Parse(q.Get("id")); err == nil {
		existingID = &id
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s, err := slug.Unique(r.Context(), name, lookup, existingID)
	switch {
	case errors.Is(err, slug.ErrEmpty):
		return
	case err != nil:
		slog.Warn("slug preview failed", "error", err)
		return
	}
	fmt.Fprintf(w, "Slug sugerido: <code>%s</code>", s)
}

// invalidatePublic drops every cached public page. Any catalog write can
// change the home page, the category pages and course pages at once.
func (a *Admin) invalidatePublic(ctx context.Context, entity string, id uuid.UUID, action string) {
	a.pageCache.InvalidateAll(ctx)
	slog.Info("public cache invalidated", "entity", entity, "id", id, "action", action)
}

// writeErrorMessage maps store and slug errors to the message shown on the
// form. Errors it does not recognise are returned for logging.
func writeErrorMessage(err error) (string, error) {
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, slug.ErrEmpty):
		return "O nome não gera um slug válido; informe um slug.", nil
	case errors.Is(err, store.ErrDuplicateSlug):
		return "Este slug já está em uso.", nil
	case errors.Is(err, slug.ErrExhausted):
		return "Não foi possível gerar um slug livre; informe um slug.", nil
	case errors.Is(err, store.ErrForeignKey):
		return "A categoria selecionada não existe mais.", nil
	}
	return "", err
}

// urlID parses the {id} URL parameter. It writes a 400 and returns false
// when the value is not a UUID.
func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "ID inválido", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// finishDelete completes a delete request. HTMX callers get an empty 200
// so the row is swapped out; plain forms are redirected to back.
func finishDelete(w http.ResponseWriter, r *http.Request, back string) {
	if r.Header.Get("HX-Request") == "true" {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// serverError logs err and answers with a generic 500.
func serverError(w http.ResponseWriter, msg string, err error, args ...any) {
	slog.Error(msg, append([]any{"error", err}, args...)...)
	http.Error(w, "Erro interno do servidor", http.StatusInternalServerError)
}
