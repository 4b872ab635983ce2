package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/davidebenetti/artpay-checkout/api/routes"
	"github.com/davidebenetti/artpay-checkout/internal/checkout"
	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/internal/eligibility"
	"github.com/davidebenetti/artpay-checkout/internal/fees"
	"github.com/davidebenetti/artpay-checkout/internal/intents"
	"github.com/davidebenetti/artpay-checkout/internal/lifecycle"
	"github.com/davidebenetti/artpay-checkout/internal/quotes"
	"github.com/davidebenetti/artpay-checkout/internal/transfer"
	stripewebhook "github.com/davidebenetti/artpay-checkout/internal/webhooks/stripe"
	"github.com/davidebenetti/artpay-checkout/pkg/config"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/mailer"
	"github.com/davidebenetti/artpay-checkout/pkg/metrics"
	"github.com/davidebenetti/artpay-checkout/pkg/redis"
	"github.com/davidebenetti/artpay-checkout/pkg/stripe"
	"github.com/davidebenetti/artpay-checkout/pkg/uploads"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "artpay-checkout"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "artpay-checkout",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	commerceClient, err := commerce.NewClient(cfg.Commerce, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create commerce client", err)
		os.Exit(1)
	}

	intentClient, err := intents.NewClient(cfg.Commerce, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create intent client", err)
		os.Exit(1)
	}

	uploadClient, err := uploads.NewClient(cfg.Uploads)
	if err != nil {
		logg.Error(context.Background(), "failed to create upload client", err)
		os.Exit(1)
	}

	mailClient, err := mailer.NewClient(cfg.Mail)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail client", err)
		os.Exit(1)
	}

	calculator, err := fees.NewCalculator(cfg.Fees)
	if err != nil {
		logg.Error(context.Background(), "failed to create fee calculator", err)
		os.Exit(1)
	}

	resolver, err := eligibility.NewResolver(cfg.Methods, calculator)
	if err != nil {
		logg.Error(context.Background(), "failed to create eligibility resolver", err)
		os.Exit(1)
	}

	machine, err := lifecycle.NewMachine(commerceClient, redisClient, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle machine", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(commerceClient, intentClient, resolver, calculator, redisClient, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	transferService, err := transfer.NewService(commerceClient, machine, uploadClient, mailClient, cfg.Bank, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer service", err)
		os.Exit(1)
	}

	quoteService, err := quotes.NewService(commerceClient, machine, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(commerceClient, machine, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}
	webhookGuard := redis.NewWebhookGuard(redisClient, "stripe", 0)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting checkout api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			Redis:         redisClient,
			Checkout:      checkoutService,
			Transfer:      transferService,
			Quotes:        quoteService,
			Orders:        commerceClient,
			Tracking:      redisClient,
			StripeClient:  stripeClient,
			StripeService: webhookService,
			StripeGuard:   webhookGuard,
			Registry:      registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "checkout api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
