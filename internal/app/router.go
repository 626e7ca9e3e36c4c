package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mercato-admin/mercato-admin/internal/auth"
	"github.com/mercato-admin/mercato-admin/internal/catalog"
	"github.com/mercato-admin/mercato-admin/internal/observability"
	"github.com/mercato-admin/mercato-admin/internal/shared"
	"github.com/mercato-admin/mercato-admin/internal/storage"
	"github.com/mercato-admin/mercato-admin/jobs"
	"github.com/mercato-admin/mercato-admin/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	CatalogHandler *catalog.Handler
	UploadHandler  *storage.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Mercato defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/products", http.StatusSeeOther)
	})

	params.AuthHandler.MountRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		params.CatalogHandler.MountRoutes(r)
		if params.UploadHandler != nil {
			params.UploadHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	// Uploaded product images live outside the binary.
	if params.Config != nil && params.Config.MediaRoot != "" {
		mediaServer := http.StripPrefix("/media/", http.FileServer(http.Dir(params.Config.MediaRoot)))
		r.Handle("/media/*", staticCacheHandler(mediaServer))
	}

	return r
}

// staticCacheHandler wraps a file server with a one hour Cache-Control
// header.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
