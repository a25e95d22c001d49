package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/espython/website-builder/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	projects    RouteRegistrar
	scoped      []RouteRegistrar
	catalog     RouteRegistrar
	preferences RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix = "/api/v1"
	defaultTimeout   = 60 * time.Second
)

// NewRouter constructs the chi router with shared middleware and the builder route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeRouteNotFound, fmt.Sprintf("no route for %s", req.URL.Path)))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path)))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		mount := func(path string, registrar RouteRegistrar, name string) {
			api.Route(path, func(group chi.Router) {
				group.Use(middleware.Timeout(defaultTimeout))
				if registrar != nil {
					registrar(group)
					return
				}
				registerNotImplemented(group, name)
			})
		}

		// Project scoped registrars share the /projects group; the live channel
		// is long lived so the group carries no request timeout.
		api.Route("/projects", func(group chi.Router) {
			if cfg.projects == nil && len(cfg.scoped) == 0 {
				registerNotImplemented(group, "projects")
				return
			}
			if cfg.projects != nil {
				cfg.projects(group)
			}
			for _, registrar := range cfg.scoped {
				if registrar != nil {
					registrar(group)
				}
			}
		})
		mount("/catalog", cfg.catalog, "catalog")
		mount("/preferences", cfg.preferences, "preferences")
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithProjectRoutes configures the registrar responsible for project metadata endpoints.
func WithProjectRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.projects = reg
	}
}

// WithProjectScopedRoutes adds registrars mounted beneath /projects, such as sections and drafts.
func WithProjectScopedRoutes(regs ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.scoped = append(cfg.scoped, regs...)
	}
}

// WithCatalogRoutes configures the registrar responsible for palette and template endpoints.
func WithCatalogRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.catalog = reg
	}
}

// WithPreferenceRoutes configures the registrar responsible for editor preferences.
func WithPreferenceRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.preferences = reg
	}
}

func registerNotImplemented(r chi.Router, name string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeNotImplemented, fmt.Sprintf("%s routes not implemented", name)))
	}
	r.HandleFunc("/*", handler)
	r.HandleFunc("/", handler)
	r.NotFound(handler)
	r.MethodNotAllowed(handler)
}
