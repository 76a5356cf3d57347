package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stallpass/api/internal/config"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"github.com/stallpass/api/internal/handler"
	mw "github.com/stallpass/api/internal/middleware"
	"github.com/stallpass/api/internal/notify"
	"github.com/stallpass/api/internal/service"
	"github.com/stallpass/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// events receives order and draw notifications; the hub is expected to be
// part of it.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, events notify.Publisher) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Token board; auth is the ?token= query param
	r.Get("/ws/stalls/{sid}/tokens", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, queries, cfg.JWTSecret, w, r)
	})

	// Services
	draws := service.NewLuckyDrawService(pool, func(db database.DBTX) service.LuckyDrawStore {
		return database.New(db)
	})
	settings := service.NewSettingsService(queries)
	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, service.OrderOptions{
		EventName:         cfg.EventName,
		StrictTransitions: cfg.StrictOrderTransitions,
		Draws:             draws,
		Events:            events,
	})

	// Handlers
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, cfg.JWTTTL)
	userHandler := handler.NewUserHandler(queries)
	stallHandler := handler.NewStallHandler(queries)
	foodHandler := handler.NewFoodItemHandler(queries)
	offerHandler := handler.NewOfferHandler(queries, cfg.Location)
	orderHandler := handler.NewOrderHandler(orders, queries)
	tokenHandler := handler.NewTokenHandler(queries, cfg.Location)
	analyticsHandler := handler.NewAnalyticsHandler(queries)
	feedbackHandler := handler.NewFeedbackHandler(queries)
	settingsHandler := handler.NewSettingsHandler(settings)
	drawHandler := handler.NewLuckyDrawHandler(draws, settings, queries)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		authHandler.RegisterRoutes(r)
		stallHandler.RegisterPublicRoutes(r)
		offerHandler.RegisterPublicRoutes(r)
		feedbackHandler.RegisterPublicRoutes(r)
		settingsHandler.RegisterPublicRoutes(r)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret, queries))

			authHandler.RegisterProtectedRoutes(r)
			r.Route("/users", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				userHandler.RegisterRoutes(r)
			})

			stallHandler.RegisterRoutes(r)
			foodHandler.RegisterRoutes(r)
			offerHandler.RegisterRoutes(r)
			orderHandler.RegisterRoutes(r)
			tokenHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
			feedbackHandler.RegisterRoutes(r)
			settingsHandler.RegisterRoutes(r)
			drawHandler.RegisterRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
