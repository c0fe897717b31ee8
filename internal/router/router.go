package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"dumptrack-api/internal/guard"
	"dumptrack-api/internal/handler"
	"dumptrack-api/internal/middleware"
	"dumptrack-api/internal/workspace"
	"dumptrack-api/pkg/metrics"
)

// Config holds the configuration for creating a router.
type Config struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	MetricsPath    string
	AllowedOrigins []string

	Registry *workspace.Registry
	Guard    *guard.Guard

	Handler          *handler.Handler
	AdminHandler     *handler.AdminHandler
	AuthHandler      *handler.AuthHandler
	InventoryHandler *handler.InventoryHandler
	TrackingHandler  *handler.TrackingHandler
	ReportHandler    *handler.ReportHandler
	UserHandler      *handler.UserHandler
	ViewHandler      *handler.ViewHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(cfg.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", workspace.HeaderSession},
		ExposedHeaders:   []string{"X-Request-ID", workspace.HeaderSession},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Ops routes, no workspace
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.Registry.Middleware)
		g := cfg.Guard

		// Navigation routes
		if cfg.ViewHandler != nil {
			for _, page := range guard.Pages() {
				r.With(g.Navigation(page)).Get(page.Path, cfg.ViewHandler.Page(page))
			}
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.ViewHandler != nil {
				r.Get("/routes", cfg.ViewHandler.Routes(g))
			}

			if cfg.AuthHandler != nil {
				r.Route("/auth", func(r chi.Router) {
					r.Post("/signup", cfg.AuthHandler.SignUp)
					r.Post("/login", cfg.AuthHandler.Login)
					r.Post("/logout", cfg.AuthHandler.Logout)
					r.Get("/me", cfg.AuthHandler.Me)
				})
			}

			// Signed-in routes
			r.Group(func(r chi.Router) {
				r.Use(g.RequireAuth)

				if cfg.InventoryHandler != nil {
					h := cfg.InventoryHandler
					r.Route("/inventory", func(r chi.Router) {
						r.Get("/", h.List)
						r.Post("/", h.Add)
						r.Get("/added", h.Added)
						r.Get("/capitalize", h.Capitalize)
						r.Get("/search", h.Search)
						r.Get("/dumps/{name}", h.ByName)
					})
					r.Route("/dump-metadata", func(r chi.Router) {
						r.Get("/", h.ListMetadata)
						r.Post("/", h.SaveMetadata)
					})
				}

				if cfg.TrackingHandler != nil {
					h := cfg.TrackingHandler
					r.Route("/tracking", func(r chi.Router) {
						r.Post("/initialize", h.Initialize)
						r.Get("/summary", h.Summary)
						r.Post("/recount", h.Recount)
						r.Route("/dumps", func(r chi.Router) {
							r.Get("/", h.ListDumps)
							r.Post("/", h.AddDump)
							r.Get("/{id}", h.GetDump)
							r.Delete("/{id}", h.DeleteDump)
							r.Get("/{id}/statistics", h.DumpStatistics)
							r.Get("/{id}/deliveries", h.DumpDeliveries)
						})
						r.Route("/deliveries", func(r chi.Router) {
							r.Get("/", h.ListDeliveries)
							r.Post("/", h.AddDelivery)
							r.Get("/by-month", h.DeliveriesByMonth)
							r.Patch("/{id}", h.UpdateDelivery)
							r.Delete("/{id}", h.DeleteDelivery)
						})
					})
				}

				if cfg.ReportHandler != nil {
					h := cfg.ReportHandler
					r.Route("/reports", func(r chi.Router) {
						r.Get("/", h.List)
						r.Post("/", h.Create)
						r.Post("/generate", h.Generate)
						r.Get("/current", h.Current)
						r.Put("/current", h.SelectCurrent)
					})
				}
			})

			// Administrator routes
			r.Group(func(r chi.Router) {
				r.Use(g.RequireAdmin)

				if cfg.UserHandler != nil {
					r.Get("/users", cfg.UserHandler.List)
					r.Delete("/users/{id}", cfg.UserHandler.Delete)
				}
				if cfg.AdminHandler != nil {
					r.Get("/admin/stats", cfg.AdminHandler.GetStats)
				}
			})
		})
	})

	return r
}
