package main

import (
	"context"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"familybudget/internal/amqp"
	"familybudget/internal/backend"
	"familybudget/internal/cli"
	"familybudget/internal/config"
	"familybudget/internal/conversation"
	apphttp "familybudget/internal/http"
	"familybudget/internal/log"
	"familybudget/internal/ratelimit"
	"familybudget/internal/render"
	"familybudget/internal/services"
	"familybudget/internal/telegram"
	"familybudget/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Bot stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	clock := func() time.Time { return time.Now().In(cfg.Location) }

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	ledger, err := backend.NewFactory(logger, cfg.Location).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Warn("Ledger cleanup failed", log.FieldError, err.Error())
		}
	}()

	var publisher conversation.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP events enabled", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
		}
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return err
	}

	texts := render.New(cfg.Currency)
	budgetSvc := services.NewBudgetService(ledger.Store, cfg.Catalog, clock)
	manager := conversation.NewManager(conversation.Config{
		Catalog:   cfg.Catalog,
		Store:     ledger.Store,
		Texts:     texts,
		Allowed:   cfg.AllowedUserIDs,
		Now:       clock,
		Publisher: publisher,
		Logger:    logger,
	})

	hour, minute := cfg.ReportClock()
	reports := worker.NewReportWorker(worker.ReportConfig{
		Budget:     budgetSvc,
		Texts:      texts,
		Notifier:   telegram.NewNotifier(api),
		Recipients: cfg.AllowedUserIDs,
		Hour:       hour,
		Minute:     minute,
		Location:   cfg.Location,
		Logger:     logger,
	})

	limiter := ratelimit.NewLimiter(ratelimit.Config{PerMinute: cfg.RateLimitPerMinute})
	defer limiter.Stop()

	bot := telegram.NewBot(telegram.Config{
		Sender:  api,
		Manager: manager,
		Budget:  budgetSvc,
		Reports: reports,
		Catalog: cfg.Catalog,
		Texts:   texts,
		Limiter: limiter,
		Logger:  logger,
	})
	if err := bot.RegisterCommands(ctx); err != nil {
		logger.Warn("Bot commands not registered", log.FieldError, err.Error())
	}

	logger.Info("Starting budget bot",
		log.FieldBackend, ledger.Type.String(),
		"allowed_users", len(cfg.AllowedUserIDs),
		"daily_report", cfg.DailyReportTime,
		"timezone", cfg.Location.String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Poll(ctx, api) })
	if len(cfg.AllowedUserIDs) > 0 {
		g.Go(func() error { return reports.Run(ctx) })
	} else {
		logger.Warn("No allowed users configured, scheduled report disabled")
	}
	if cfg.OpsAddr != "" {
		srv := apphttp.NewServer(cfg.OpsAddr, budgetSvc, logger)
		g.Go(func() error { return srv.Start(ctx, shutdownTimeout) })
	}
	return g.Wait()
}
