package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dhaba-pos/api/internal/config"
	"github.com/dhaba-pos/api/internal/handler"
	"github.com/dhaba-pos/api/internal/inventory"
	mw "github.com/dhaba-pos/api/internal/middleware"
	"github.com/dhaba-pos/api/internal/notify"
	"github.com/dhaba-pos/api/internal/service"
	"github.com/dhaba-pos/api/internal/store"
	"github.com/dhaba-pos/api/internal/tablestate"
	"github.com/dhaba-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up: auth,
// outlet-scoped order/table/stock/menu endpoints, and the WebSocket
// subscription for kitchen displays.
func New(cfg *config.Config, queries *store.Queries, pool *pgxpool.Pool, hub *ws.Hub, sink notify.Sink) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/outlets/{oid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	ledger := inventory.Ledger{FailOnNegative: cfg.FailOnNegativeStock}

	orderService := service.NewOrderService(pool, func(db store.DBTX) service.Store {
		return store.New(db)
	}, ledger, sink)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/outlets/{oid}", func(r chi.Router) {
			r.Use(mw.RequireOutlet)

			orderHandler := handler.NewOrderHandler(orderService, queries)
			r.Route("/orders", orderHandler.RegisterRoutes)

			tableHandler := handler.NewTableHandler(queries, pool, func(db store.DBTX) tablestate.Store {
				return store.New(db)
			})
			r.Route("/tables", tableHandler.RegisterRoutes)

			menuHandler := handler.NewMenuHandler(queries)
			r.Route("/menu", menuHandler.RegisterRoutes)

			// Stock writes are manager territory.
			stockHandler := handler.NewStockHandler(queries, pool, func(db store.DBTX) inventory.Store {
				return store.New(db)
			}, ledger, sink)
			r.Route("/stock", func(r chi.Router) {
				r.Get("/", stockHandler.List)
				r.Get("/{id}/movements", stockHandler.ListMovements)
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole("OWNER", "MANAGER"))
					r.Post("/{id}/receive", stockHandler.Receive)
					r.Post("/{id}/adjust", stockHandler.Adjust)
				})
			})
		})
	})

	return r
}
