package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsline-bot/editor-engine/internal/api"
	"github.com/newsline-bot/editor-engine/internal/app/aggregator"
	"github.com/newsline-bot/editor-engine/internal/app/cleaner"
	"github.com/newsline-bot/editor-engine/internal/app/ltmonitor"
	"github.com/newsline-bot/editor-engine/internal/app/ltupdater"
	"github.com/newsline-bot/editor-engine/internal/app/mtbalancer"
	"github.com/newsline-bot/editor-engine/internal/app/painter"
	"github.com/newsline-bot/editor-engine/internal/app/planner"
	"github.com/newsline-bot/editor-engine/internal/app/preparator"
	"github.com/newsline-bot/editor-engine/internal/app/previewer"
	"github.com/newsline-bot/editor-engine/internal/app/publisher"
	"github.com/newsline-bot/editor-engine/internal/app/supervisor"
	"github.com/newsline-bot/editor-engine/internal/app/timescorer"
	"github.com/newsline-bot/editor-engine/internal/config"
	"github.com/newsline-bot/editor-engine/internal/infra/cache"
	"github.com/newsline-bot/editor-engine/internal/infra/classifier"
	"github.com/newsline-bot/editor-engine/internal/infra/painterclient"
	"github.com/newsline-bot/editor-engine/internal/infra/store"
	"github.com/newsline-bot/editor-engine/internal/infra/telegram"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the publishing pipeline as a long-lived daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	cacheClient := cache.New(cfg.Credentials.RedisAddr, secondsToDuration(cfg.Credentials.CacheTTLSeconds))
	classifierClient := classifier.New(classifier.Config{
		BaseURL: cfg.Credentials.ClassifierURL,
		APIKey:  cfg.Credentials.ClassifierAPIKey,
		Cache:   cacheClient,
	})
	painterClient := painterclient.New(painterclient.Config{
		BaseURL: cfg.Credentials.PainterURL,
		APIKey:  cfg.Credentials.PainterAPIKey,
	})
	telegramClient := telegram.New(telegram.Config{
		Token:  cfg.Credentials.TelegramToken,
		ChatID: cfg.Credentials.TelegramChatID,
	})
	previewClient := telegram.New(telegram.Config{
		Token:  cfg.Credentials.TelegramToken,
		ChatID: cfg.Credentials.PreviewChatID,
	})

	agg := aggregator.New(s, aggregator.Config{Weights: cfg.Weights.AsMap()}, logger)
	ltUpdater := ltupdater.New(classifierClient, s, ltupdater.Config{
		Posts:   cfg.Scheduling.LTPosts,
		PerHour: cfg.Scheduling.PerHour,
		MinHour: cfg.Window.MinHour,
		MaxHour: cfg.Window.MaxHour,
	}, logger)
	ltMonitor := ltmonitor.New(classifierClient, s, ltmonitor.Config{}, logger)

	balancer := mtbalancer.New(classifierClient, s, mtbalancer.Config{Posts: cfg.Scheduling.MTPosts}, logger)
	scorer := timescorer.New(s, timescorer.Config{}, logger)

	p := planner.New(s, balancer, scorer, planner.Config{
		PerHour: cfg.Scheduling.PerHour,
		MinHour: cfg.Window.MinHour,
		MaxHour: cfg.Window.MaxHour,
	}, logger)

	imagePainter := painter.New(painterClient, s, painter.Config{}, logger)
	captionPreparator := preparator.New(s, preparator.Config{SubscribeURL: ""}, logger)
	pub := publisher.New(telegramClient, s, publisher.Config{}, logger)
	preview := previewer.New(previewClient, s, previewer.Config{}, logger)
	clean := cleaner.New(s, cleaner.Config{}, logger)

	sup := supervisor.New()
	sup.Register(agg, 10*time.Second)
	sup.Register(ltUpdater, time.Hour)
	sup.Register(ltMonitor, 5*time.Second)
	sup.Register(p, 30*time.Second)
	sup.Register(imagePainter, 10*time.Second)
	sup.Register(captionPreparator, 10*time.Second)
	sup.Register(pub, 30*time.Second)
	sup.Register(preview, 30*time.Second)
	sup.Register(clean, time.Hour)

	apiServer := api.NewServer(sup, logger)
	p.SetNotifier(apiServer.Events())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: apiServer.Handler(),
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped unexpectedly")
		}
	}()

	sup.Run(runCtx, 30*time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("daemon stopped")
	return nil
}
