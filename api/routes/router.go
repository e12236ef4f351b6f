package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storemate/terminal-backend/api/controllers"
	"github.com/storemate/terminal-backend/api/middleware"
	"github.com/storemate/terminal-backend/internal/cart"
	checkoutsvc "github.com/storemate/terminal-backend/internal/checkout"
	"github.com/storemate/terminal-backend/internal/holds"
	"github.com/storemate/terminal-backend/internal/offline"
	"github.com/storemate/terminal-backend/internal/pricing"
	"github.com/storemate/terminal-backend/pkg/config"
	"github.com/storemate/terminal-backend/pkg/db"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/redis"
)

// RouterParams collect everything the HTTP surface needs.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Pricing  pricing.Service
	Holds    holds.Service
	Offline  offline.Service
	Registry *prometheus.Registry
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(p.Config.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DB, p.Redis))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Reason(p.Config.POS.ReasonMinLen, p.Logger))
		r.Use(middleware.Idempotency(p.Redis, p.Config.Idempotency.TTL, p.Logger))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.SessionOpen(p.Cart, p.Logger))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.SessionFetch(p.Cart, p.Logger))
				r.Put("/details", controllers.SessionUpdateDetails(p.Cart, p.Logger))
				r.Put("/payments", controllers.SessionSetPayments(p.Cart, p.Logger))
				r.Post("/lines", controllers.LineAdd(p.Cart, p.Logger))
				r.Delete("/lines", controllers.CartClear(p.Cart, p.Logger))
				r.Patch("/lines/{lineId}", controllers.LineUpdate(p.Cart, p.Logger))
				r.Delete("/lines/{lineId}", controllers.LineRemove(p.Cart, p.Logger))
				r.Post("/quote", controllers.Quote(p.Pricing, p.Logger))
				r.Post("/checkout", controllers.Checkout(p.Checkout, p.Logger))
				r.Post("/hold", controllers.HoldCreate(p.Holds, p.Logger))
			})
		})

		r.Route("/holds", func(r chi.Router) {
			r.Get("/", controllers.HoldList(p.Holds, p.Logger))
			r.Post("/{holdId}/resume", controllers.HoldResume(p.Holds, p.Logger))
			r.Delete("/{holdId}", controllers.HoldDelete(p.Holds, p.Logger))
		})

		r.Route("/offline", func(r chi.Router) {
			r.Get("/queue", controllers.OfflineQueueList(p.Offline, p.Logger))
			r.Delete("/queue", controllers.OfflineQueuePurge(p.Offline, p.Logger))
			r.Post("/replay", controllers.OfflineReplay(p.Offline, p.Logger))
		})
	})

	return r
}
