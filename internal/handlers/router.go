package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"terminal_bridge/internal/metrics"
	"terminal_bridge/internal/middleware"
)

// RouterOptions configures the HTTP surface.
type RouterOptions struct {
	CORSOrigins []string
}

// Router serves every bridge endpoint. Close releases its rate limiters.
type Router struct {
	http.Handler
	limiters []*middleware.RateLimiter
}

// Close stops the rate limiters' background cleanup.
func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Stop()
	}
}

// NewRouter builds the chi router serving every bridge endpoint.
func NewRouter(deps *Dependencies, opts RouterOptions) *Router {
	r := chi.NewRouter()
	apiLimiter := middleware.NewAPILimiter()
	sessionLimiter := middleware.NewSessionLimiter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.Compress(5, "application/json"))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	accountHandler := NewAccountHandler(deps.QueryService, deps.TradeService)
	healthHandler := NewHealthHandler(deps.HealthReporter)
	refreshHandler := NewRefreshHandler(deps.Scheduler, deps.SyncService)

	r.Get("/health", healthHandler.Get)
	r.Handle("/debug/vars", metrics.Handler())

	// Served from the cache; never touches the terminal
	r.Group(func(r chi.Router) {
		r.Use(apiLimiter.Limit)
		r.Get("/accounts/summary", accountHandler.Summary)
		r.Get("/account/{accountId}/info", accountHandler.Info)
		r.Get("/refresh/history", refreshHandler.History)
	})

	// Logs the terminal in; rate limited harder to keep the session lock free
	r.Group(func(r chi.Router) {
		r.Use(sessionLimiter.Limit)
		r.Get("/account/{accountId}/trades", accountHandler.Trades)
		r.Post("/refresh", refreshHandler.Force)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found", Code: "not_found"})
	})

	return &Router{
		Handler:  r,
		limiters: []*middleware.RateLimiter{apiLimiter, sessionLimiter},
	}
}
