package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/storefront/api/internal/platform/httpx"
)

const (
	apiVersionPrefix   = "/api/v1"
	requestTimeout     = 30 * time.Second
	maxRequestBodySize = 1 << 20
	errorNotFoundCode  = "route_not_found"
)

// RouteRegistrar attaches one resource's endpoints to its sub-router.
type RouteRegistrar func(r chi.Router)

type middlewareFunc = func(http.Handler) http.Handler

// routeGroup is a prefix under /api/v1 owned by a single handler set.
type routeGroup struct {
	path     string
	register RouteRegistrar
	guards   []middlewareFunc
}

type routerConfig struct {
	global  []middlewareFunc
	health  *HealthHandlers
	metrics http.Handler
	groups  map[string]*routeGroup
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

// groupOrder fixes the mount order so route registration is deterministic.
var groupOrder = []string{"cart", "orders", "admin"}

// NewRouter builds the HTTP surface: probes at the root, the storefront and admin groups under
// /api/v1. Groups without a registrar answer 501 so partially wired binaries stay honest.
func NewRouter(opts ...Option) chi.Router {
	cfg := &routerConfig{
		global: []middlewareFunc{
			middleware.RequestID,
			middleware.RealIP,
			middleware.RequestSize(maxRequestBodySize),
			middleware.Timeout(requestTimeout),
		},
		groups: make(map[string]*routeGroup, len(groupOrder)),
	}
	for _, name := range groupOrder {
		cfg.groups[name] = &routeGroup{path: "/" + name}
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	useAll(r, cfg.global)
	r.NotFound(routeNotFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}

	r.Route(apiVersionPrefix, func(api chi.Router) {
		for _, name := range groupOrder {
			group := cfg.groups[name]
			api.Route(group.path, func(sub chi.Router) {
				useAll(sub, group.guards)
				if group.register == nil {
					stubGroup(sub, name)
					return
				}
				group.register(sub)
			})
		}
	})

	return r
}

func useAll(r chi.Router, mws []middlewareFunc) {
	for _, mw := range mws {
		if mw != nil {
			r.Use(mw)
		}
	}
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", r.URL.Path), http.StatusNotFound))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	msg := fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path)
	httpx.WriteError(r.Context(), w, httpx.NewError("method_not_allowed", msg, http.StatusMethodNotAllowed))
}

func stubGroup(r chi.Router, name string) {
	notImplemented := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", name+" endpoints are not enabled", http.StatusNotImplemented))
	}
	r.HandleFunc("/", notImplemented)
	r.HandleFunc("/*", notImplemented)
	r.NotFound(notImplemented)
	r.MethodNotAllowed(notImplemented)
}

func withGroup(name string, fn func(*routeGroup)) Option {
	return func(cfg *routerConfig) {
		if group, ok := cfg.groups[name]; ok {
			fn(group)
		}
	}
}

// WithMiddlewares appends middleware that wraps every route, probes included.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.global = append(cfg.global, mw...)
	}
}

// WithHealthHandlers serves /healthz and /readyz from h.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithMetricsHandler exposes handler on GET /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.metrics = handler
	}
}

func WithCartRoutes(reg RouteRegistrar) Option {
	return withGroup("cart", func(g *routeGroup) { g.register = reg })
}

func WithOrderRoutes(reg RouteRegistrar) Option {
	return withGroup("orders", func(g *routeGroup) { g.register = reg })
}

func WithAdminRoutes(reg RouteRegistrar) Option {
	return withGroup("admin", func(g *routeGroup) { g.register = reg })
}

// WithAdminMiddlewares guards the /admin group only; cart and order routes authenticate per handler.
func WithAdminMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return withGroup("admin", func(g *routeGroup) { g.guards = append(g.guards, mw...) })
}
