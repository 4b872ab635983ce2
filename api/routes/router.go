package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidebenetti/artpay-checkout/api/controllers"
	webhookcontrollers "github.com/davidebenetti/artpay-checkout/api/controllers/webhooks"
	"github.com/davidebenetti/artpay-checkout/api/middleware"
	"github.com/davidebenetti/artpay-checkout/pkg/config"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/redis"
	"github.com/davidebenetti/artpay-checkout/pkg/stripe"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Redis         *redis.Client
	Checkout      controllers.CheckoutService
	Transfer      controllers.TransferService
	Quotes        controllers.QuoteService
	Orders        controllers.OrderLister
	Tracking      controllers.TrackingReader
	StripeClient  *stripe.Client
	StripeService webhookcontrollers.StripeWebhookService
	StripeGuard   *redis.WebhookGuard
	Registry      *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, deps.Redis))

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/checkout/resume", controllers.ResumeCheckout(deps.Orders, deps.Tracking, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/checkout", controllers.CheckoutSummary(deps.Checkout, logg))
			r.Post("/payment-method", controllers.SelectPaymentMethod(deps.Checkout, logg))
			r.Delete("/payment-method", controllers.CancelPaymentMethod(deps.Checkout, logg))

			r.Route("/transfer", func(r chi.Router) {
				r.Get("/", controllers.TransferState(deps.Transfer, logg))
				r.Post("/start", controllers.TransferStart(deps.Transfer, logg))
				r.Post("/receipt", controllers.TransferReceipt(deps.Transfer, cfg.Uploads.MaxSizeBytes, logg))
				r.Post("/confirm", controllers.TransferConfirm(deps.Transfer, logg))
				r.Post("/abandon", controllers.TransferAbandon(deps.Transfer, logg))
			})
		})

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", controllers.QuoteLoad(deps.Quotes, logg))
			r.Post("/accept", controllers.QuoteAccept(deps.Quotes, logg))
			r.Post("/reject", controllers.QuoteReject(deps.Quotes, logg))
		})

		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeService, deps.StripeClient, deps.StripeGuard, logg))
	})

	return r
}
