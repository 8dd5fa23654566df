package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"saralfin/internal/advisor"
	"saralfin/internal/amqp"
	"saralfin/internal/cli"
	apphttp "saralfin/internal/http"
	applog "saralfin/internal/log"
	"saralfin/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.ApplyLogLevel(cfg, applog.ComponentApp)

	st, backendRes := cli.OpenStore(context.Background(), logger, cfg)

	// Events are optional: without a broker the service just skips publishing.
	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction events disabled", "error", err)
		} else {
			publisher = client
			logger.Info("Transaction events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewTransactionService(st, publisher)
	if backendRes.Cleanup != nil {
		svc.OnClose(backendRes.Cleanup)
	}

	var adv *advisor.Service
	if cfg.AdvisorEnabled() {
		model := advisor.NewOpenAIModel(cfg.AdvisorAPIKey, cfg.AdvisorBaseURL, cfg.AdvisorModel)
		adv = advisor.NewService(model, cfg.AdvisorMaxSessions, cfg.AdvisorSessionTTL, cfg.AdvisorTimeout)
		logger.Info("Advisor enabled", "model", cfg.AdvisorModel)
	} else {
		logger.Info("Advisor disabled - no ADVISOR_API_KEY provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Service:            svc,
		Advisor:            adv,
		Ready:              backendRes.Ping,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	srv.ReadTimeout = 30 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Service close error", "error", err)
		}
	})

	logger.Info("Starting saralfin server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", svc.EventsEnabled(),
		"advisor", adv != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
