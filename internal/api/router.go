package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/api/middleware"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/auth"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/config"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/handlers"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/realtime"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, logger zerolog.Logger, db store.DataStore, redisStore *store.RedisStore, hub *realtime.Hub, verifier auth.Verifier) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (no-op without Redis)
	var redisClient *redis.Client
	if redisStore != nil {
		redisClient = redisStore.Client()
	}
	limiter := middleware.NewRateLimiter(redisClient, logger)
	r.Use(limiter.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(db, redisStore, hub, cfg.AllowedOrigins, logger)
	authmw := middleware.NewAuthMiddleware(verifier)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/register", h.Register)

	// Websocket entry point; the hub authenticates during the handshake.
	r.Get("/ws", h.ServeWS)

	// Authenticated REST routes
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth)

		r.Get("/api/presence/{id}", h.GetPresence)
		r.Post("/api/conversations", h.CreateConversation)
		r.Get("/api/conversations", h.ListConversations)
		r.Get("/api/conversations/{id}", h.GetConversation)
		r.Get("/api/conversations/{id}/messages", h.GetConversationMessages)
	})

	return r
}
