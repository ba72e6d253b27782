// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the admin area and
// the public catalog. Admin pages support full-page and HTMX partial
// rendering, detected via the HX-Request header. Public pages render into
// a buffer so the result can be stored in the page cache.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"coursecatalog/internal/middleware"
	"coursecatalog/internal/session"
)

//go:embed templates/admin/*.html templates/public/*.html
var templateFS embed.FS

// PageData holds all data passed to admin templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active nav section (e.g., "dashboard", "cursos")
	Session   *session.Data  // Current user session (nil if unauthenticated)
	CSRFToken string         // CSRF token for forms and HTMX headers
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// PublicData holds the data passed to public catalog templates.
type PublicData struct {
	Title       string
	Description string
	Data        map[string]any
}

// Renderer handles template parsing and execution.
type Renderer struct {
	admin   map[string]*template.Template
	public  map[string]*template.Template
	funcMap template.FuncMap
}

// standaloneTemplates lists admin templates that render as full HTML pages
// without the base layout.
var standaloneTemplates = map[string]bool{
	"login":     true,
	"login_2fa": true,
}

// New creates a Renderer by parsing every embedded template. Admin pages
// are paired with the admin layout and public pages with the public one.
// devMode only adds an environment badge to the admin layout.
func New(devMode bool) (*Renderer, error) {
	r := &Renderer{
		admin:  make(map[string]*template.Template),
		public: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"activeClass": func(current, target string) string {
				if current == target {
					return "active"
				}
				return ""
			},
			// deref safely dereferences a string pointer for use in templates.
			"deref": func(s *string) string {
				if s == nil {
					return ""
				}
				return *s
			},
			"isDev": func() bool {
				return devMode
			},
			// uuidEq compares a *uuid.UUID pointer with a uuid.UUID value.
			"uuidEq": func(ptr *uuid.UUID, val uuid.UUID) bool {
				return ptr != nil && *ptr == val
			},
			// hasID reports whether ids contains id. Used to pre-select
			// tags in the course form.
			"hasID": func(ids []uuid.UUID, id uuid.UUID) bool {
				return slices.Contains(ids, id)
			},
			"date": func(t time.Time) string {
				return t.Format("02/01/2006")
			},
			"dateTime": func(t *time.Time) string {
				if t == nil {
					return ""
				}
				return t.Format("02/01/2006 15:04")
			},
		},
	}

	if err := r.parseDir("admin", r.admin, standaloneTemplates); err != nil {
		return nil, err
	}
	if err := r.parseDir("public", r.public, nil); err != nil {
		return nil, err
	}
	return r, nil
}

// parseDir pairs every page in templates/<dir> with that directory's
// base.html, except the names listed in standalone.
func (rn *Renderer) parseDir(dir string, into map[string]*template.Template, standalone map[string]bool) error {
	root := "templates/" + dir
	entries, err := templateFS.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		if standalone[tmplName] {
			tmpl, err = template.New(name).Funcs(rn.funcMap).ParseFS(templateFS, root+"/"+name)
		} else {
			tmpl, err = template.New("base.html").Funcs(rn.funcMap).ParseFS(
				templateFS, root+"/base.html", root+"/"+name,
			)
		}
		if err != nil {
			return fmt.Errorf("parse template %s/%s: %w", dir, name, err)
		}
		into[tmplName] = tmpl
	}
	return nil
}

// Page renders a full admin page or an HTMX partial with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders an admin page like Page but with the given status
// code, e.g. 422 for a form that failed validation. For HTMX requests only
// the "content" block is sent.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.admin[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}

	execName := "base.html"
	if isHTMX(r) && !standaloneTemplates[name] {
		execName = "content"
	} else if standaloneTemplates[name] {
		execName = name + ".html"
	}

	// Render into a buffer first so a template error can still produce a
	// clean 500 instead of a half-written page.
	var buf bytes.Buffer
	if err := executeTemplate(&buf, tmpl, execName, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// Public renders a public catalog page and returns the HTML.
func (rn *Renderer) Public(name string, data *PublicData) ([]byte, error) {
	tmpl, ok := rn.public[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := executeTemplate(&buf, tmpl, "base.html", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// executeTemplate wraps template execution with error handling.
func executeTemplate(w io.Writer, tmpl *template.Template, name string, data any) error {
	return tmpl.ExecuteTemplate(w, name, data)
}

// isHTMX returns true if the request was made by HTMX (has HX-Request header).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
