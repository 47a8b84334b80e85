package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/fulfillment-backend/api/controllers"
	dispatchcontrollers "github.com/angelmondragon/fulfillment-backend/api/controllers/dispatches"
	ordercontrollers "github.com/angelmondragon/fulfillment-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/fulfillment-backend/api/controllers/payments"
	productioncontrollers "github.com/angelmondragon/fulfillment-backend/api/controllers/production"
	"github.com/angelmondragon/fulfillment-backend/api/middleware"
	"github.com/angelmondragon/fulfillment-backend/internal/dispatches"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/internal/payments"
	"github.com/angelmondragon/fulfillment-backend/internal/production"
	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

// Services are the domain services the router exposes.
type Services struct {
	Orders     orders.Service
	Dispatches dispatches.Service
	Production production.Service
	Payments   payments.Service
}

// Pingers are checked by /health/ready. Nil entries are skipped.
type Pingers struct {
	DB    controllers.Pinger
	Redis controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, pingers Pingers, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    pingers.DB,
			"redis": pingers.Redis,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(svc.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(svc.Orders, logg))
				r.Delete("/", ordercontrollers.Delete(svc.Orders, logg))
				r.Post("/items", ordercontrollers.AddItem(svc.Orders, logg))
				r.Post("/status", ordercontrollers.UpdateStatus(svc.Orders, logg))

				r.Post("/payment", paymentcontrollers.UpdateStatus(svc.Payments, logg))
				r.Get("/followups", paymentcontrollers.ListFollowups(svc.Payments, logg))

				r.Get("/dispatches", dispatchcontrollers.List(svc.Dispatches, logg))
				r.Post("/dispatches", dispatchcontrollers.Create(svc.Dispatches, logg))
				r.Post("/returns", dispatchcontrollers.CreateReturn(svc.Dispatches, logg))

				r.Get("/production", productioncontrollers.List(svc.Production, logg))
				r.Post("/production", productioncontrollers.Create(svc.Production, logg))
				r.Get("/production/remaining", productioncontrollers.Remaining(svc.Production, logg))
			})
		})

		r.Route("/order-items/{itemId}", func(r chi.Router) {
			r.Patch("/", ordercontrollers.UpdateItem(svc.Orders, logg))
			r.Delete("/", ordercontrollers.RemoveItem(svc.Orders, logg))
		})

		r.Post("/followups/{followupId}/received", paymentcontrollers.MarkReceived(svc.Payments, logg))
		r.Post("/dispatches/{dispatchId}/status", dispatchcontrollers.UpdateStatus(svc.Dispatches, logg))

		r.Route("/production/{recordId}", func(r chi.Router) {
			r.Post("/status", productioncontrollers.UpdateStatus(svc.Production, logg))
			r.Delete("/", productioncontrollers.Delete(svc.Production, logg))
		})
	})

	return r
}
