// Package router sets up all HTTP routes and middleware chains for the
// course catalog. Routes fall into the public catalog, the sign-in flow and
// the admin area, each with its own middleware stack.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"coursecatalog/internal/handlers"
	"coursecatalog/internal/middleware"
	"coursecatalog/web"
)

// maxBodyBytes caps request bodies. It leaves room for a 2 MiB cover image
// plus the rest of the course form.
const maxBodyBytes = 4 << 20

// Options carries the router's non-handler dependencies.
type Options struct {
	Sessions middleware.SessionGetter

	// LoginLimiter throttles credential and TOTP submissions per client
	// address.
	LoginLimiter *middleware.RateLimiter

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxy bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options, admin *handlers.Admin, auth *handlers.Auth, public *handlers.Public) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(chimw.RequestSize(maxBodyBytes))

	// Health check and static assets: no session, no CSRF.
	r.Get("/health", healthHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(opts.Sessions))
		r.Use(middleware.CSRF)

		// Public catalog.
		r.Get("/", public.Home)
		r.Get("/categorias", public.Categories)
		r.Get("/categorias/{slug}", public.Category)
		r.Get("/cursos/{slug}", public.Course)
		r.Get("/cursos/{slug}/inscrever", public.Enroll)

		// Sign-in pages, reachable without a session.
		r.Get("/login", auth.LoginPage)
		r.With(opts.LoginLimiter.Middleware).Post("/login", auth.LoginSubmit)
		r.Post("/logout", auth.Logout)

		// Second factor: needs a session, not a completed one.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/login/2fa", auth.Login2FAPage)
			r.With(opts.LoginLimiter.Middleware).Post("/login/2fa", auth.Login2FASubmit)
		})

		// Admin area.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Use(middleware.RequireAdmin)

			r.Get("/", admin.Dashboard)
			r.Get("/slug", admin.SlugPreview)

			r.Route("/cursos", func(r chi.Router) {
				r.Get("/", admin.CoursesList)
				r.Get("/novo", admin.CourseNew)
				r.Post("/", admin.CourseCreate)
				r.Get("/{id}", admin.CourseEdit)
				r.Post("/{id}", admin.CourseUpdate)
				r.Delete("/{id}", admin.CourseDelete)
				r.Post("/{id}/publicar", admin.CoursePublish)
			})

			r.Route("/categorias", func(r chi.Router) {
				r.Get("/", admin.CategoriesList)
				r.Get("/nova", admin.CategoryNew)
				r.Post("/", admin.CategoryCreate)
				r.Get("/{id}", admin.CategoryEdit)
				r.Post("/{id}", admin.CategoryUpdate)
				r.Delete("/{id}", admin.CategoryDelete)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", admin.TagsList)
				r.Get("/nova", admin.TagNew)
				r.Post("/", admin.TagCreate)
				r.Get("/{id}", admin.TagEdit)
				r.Post("/{id}", admin.TagUpdate)
				r.Delete("/{id}", admin.TagDelete)
			})

			r.Get("/seguranca", auth.SecurityPage)
			r.Post("/seguranca", auth.SecuritySubmit)
		})
	})

	r.NotFound(public.NotFound)

	return r
}

// staticHandler serves the embedded web/static tree.
func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: static assets missing: " + err.Error())
	}
	return http.FileServerFS(sub)
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
