package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/event-api/internal/metrics"
	"github.com/Shivanand-hulikatti/event-api/internal/upload"
)

// BasePath is where the event routes are mounted.
const BasePath = "/api/v3/app"

// RouterConfig carries the pieces NewRouter needs besides the handler.
type RouterConfig struct {
	Logger      zerolog.Logger
	CORSOrigins []string
	// PublicDir is served under upload.PublicPrefix. Empty disables static serving.
	PublicDir string
}

// NewRouter builds the HTTP routing tree.
func NewRouter(events *EventHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(CorrelationID(cfg.Logger))
	r.Use(RequestLogging)
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORS(cfg.CORSOrigins))

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/events", events.GetEvents)
		r.Post("/events", events.CreateEvent)
		r.Put("/events/{id}", events.UpdateEvent)
		r.Delete("/events/{id}", events.DeleteEvent)
	})

	if cfg.PublicDir != "" {
		r.Handle(upload.PublicPrefix+"*", http.StripPrefix(upload.PublicPrefix, http.FileServer(http.Dir(cfg.PublicDir))))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
