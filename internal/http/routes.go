// Package httpx wires the HTTP API, HTML pages and operational endpoints.
package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	clinic "github.com/d0ggzi/celery-clinic"
	"github.com/d0ggzi/celery-clinic/internal/observability/metrics"
	"github.com/d0ggzi/celery-clinic/internal/service"
)

const (
	templatePathFromRoot = "frontend/templates"
	staticPathFromRoot   = "frontend/static"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Appointments *service.AppointmentService
	Readiness    []ReadinessCheck

	// Optional: Prometheus exposition handler mounted at MetricsPath.
	MetricsHandler http.Handler
	MetricsPath    string
	Metrics        metrics.Sink

	IsDev  bool         // Serve templates and static files from disk
	Logger *slog.Logger // Logger for template and HTTP errors (optional)

	// Optional overrides, mainly for tests.
	TemplateFS fs.FS
	StaticFS   fs.FS
}

// NewRouter creates and configures the HTTP router with logging, metrics and panic recovery.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	records := &RecordHandlers{Svc: services.Appointments, Logger: logger}
	registerRecordRoutes(mux, records)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Readiness, logger))
	if services.MetricsHandler != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, services.MetricsHandler)
	}

	mux.Handle("GET /static/", staticHandler(services, logger))

	if ui := setupUIHandlers(services, logger); ui != nil {
		mux.HandleFunc("GET /{$}", ui.Index)
		mux.HandleFunc("GET /allRecords", ui.AllRecords)
	}

	return Chain(mux,
		Recover(logger),
		Logging(logger),
		Metrics(services.Metrics),
	)
}

func registerRecordRoutes(mux *http.ServeMux, h *RecordHandlers) {
	mux.HandleFunc("POST /records", h.Submit)
	mux.HandleFunc("GET /records/{record_id}", h.Status)
	mux.HandleFunc("GET /api/records", h.List)
	mux.HandleFunc("GET /api/records/{record_id}", h.Get)
}

// setupUIHandlers creates UI handlers. In dev mode templates are loaded from disk for hot
// reloading; otherwise from the embedded filesystem.
func setupUIHandlers(services RouterServices, logger *slog.Logger) *UIHandlers {
	templateFS := services.TemplateFS
	if templateFS == nil {
		templateFS = resolveFS(services.IsDev, clinic.TemplateFS, templatePathFromRoot, logger)
	}
	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateFS,
		DevMode:    services.IsDev,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create template renderer", slog.Any("error", err))
		return nil
	}
	return &UIHandlers{T: tr, Svc: services.Appointments, Logger: logger}
}

func staticHandler(services RouterServices, logger *slog.Logger) http.Handler {
	staticFS := services.StaticFS
	if staticFS == nil {
		staticFS = resolveFS(services.IsDev, clinic.StaticFS, staticPathFromRoot, logger)
	}
	return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
}

func resolveFS(isDev bool, embedded fs.FS, dir string, logger *slog.Logger) fs.FS {
	if isDev {
		return os.DirFS(dir)
	}
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		logger.Warn("failed to open embedded assets; falling back to disk", "dir", dir, "error", err)
		return os.DirFS(dir)
	}
	return sub
}

// staticWithCacheHeaders disables caching so the form script is always current.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		handler.ServeHTTP(w, r)
	})
}
