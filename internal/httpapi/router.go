package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/vntrieu/werewolf/internal/httpapi/handler"
	"github.com/vntrieu/werewolf/internal/metrics"
	"github.com/vntrieu/werewolf/internal/ratelimit"
	"github.com/vntrieu/werewolf/internal/registry"
	"github.com/vntrieu/werewolf/internal/websocket"

	_ "github.com/vntrieu/werewolf/docs" // swag-generated docs
)

// Config carries the server wiring options.
type Config struct {
	// TokenSecret signs WebSocket auth tokens; if empty, create/join
	// responses omit the token and every WS upgrade is rejected.
	TokenSecret []byte
	// RateLimiter is optional: nil disables limiting on create, join,
	// and chat.
	RateLimiter ratelimit.Limiter
	// SpectatorKey admits observers when non-empty.
	SpectatorKey string
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter builds the root HTTP router, the websocket hub, and the room
// registry, and wires them together.
//
// @title            Werewolf API
// @version          1.0
// @description      API for werewolf game rooms.
// @BasePath         /
func NewRouter(cfg Config) http.Handler {
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimiter = &ratelimit.Noop{}
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware)

	r.Get("/healthz", handler.Healthz)
	r.Handle("/metrics", metrics.Handler())

	// Swagger UI and generated spec (from swag comments)
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	// Hub and registry: the hub fans session events out to connections,
	// the registry owns room state.
	hub := websocket.NewHub()
	reg := registry.New(registry.Config{
		Notifier:     hub,
		SpectatorKey: cfg.SpectatorKey,
	})
	hub.SetEventHandler(websocket.NewEventHandler(hub, reg, rateLimiter))
	go hub.Run()

	wsHandler := websocket.NewWSHandler(hub, reg, cfg.TokenSecret)
	r.Get("/ws/rooms/{code}", wsHandler.HandleRoomWebSocket)

	// Rate limit middleware for create/join (by IP)
	rateLimitByIP := RateLimitMiddleware(rateLimiter, RateLimitKeyByIP)

	// Room routes (body size limited to 1MB for JSON)
	roomHandler := handler.NewRoomHandler(reg, cfg.TokenSecret)
	r.Route("/api/rooms", func(r chi.Router) {
		r.Use(LimitRequestBody(DefaultMaxBodyBytes))
		r.With(rateLimitByIP).Post("/", roomHandler.CreateRoom)
		r.Get("/{code}", roomHandler.GetRoom)
		r.With(rateLimitByIP).Post("/{code}/join", roomHandler.JoinRoom)
	})

	return r
}

// DefaultRateLimiter returns an in-memory rate limiter for create/join/chat:
// 20 requests per minute per IP. For multi-instance, replace with a
// Redis-backed limiter.
func DefaultRateLimiter() ratelimit.Limiter {
	return ratelimit.NewInMemory(20, time.Minute)
}
