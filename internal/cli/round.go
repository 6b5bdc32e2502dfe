package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/newsline-bot/editor-engine/internal/app/mtbalancer"
	"github.com/newsline-bot/editor-engine/internal/app/planner"
	"github.com/newsline-bot/editor-engine/internal/app/timescorer"
	"github.com/newsline-bot/editor-engine/internal/config"
	"github.com/newsline-bot/editor-engine/internal/infra/cache"
	"github.com/newsline-bot/editor-engine/internal/infra/classifier"
	"github.com/newsline-bot/editor-engine/internal/infra/store"
)

func newRoundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "round",
		Short: "Run a single planning round and exit",
		Long: "round runs one Planner tick: if a round is due, it runs " +
			"MediumTermBalancer and TimeScorer synchronously, waits for " +
			"Aggregator's settling window, selects a winner, and moves it to " +
			"to_publish — outside the long-running daemon, for manual or cron use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			s, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer s.Close()

			cl := classifier.New(classifier.Config{
				BaseURL: cfg.Credentials.ClassifierURL,
				APIKey:  cfg.Credentials.ClassifierAPIKey,
				Cache:   cache.New(cfg.Credentials.RedisAddr, secondsToDuration(cfg.Credentials.CacheTTLSeconds)),
			})

			balancer := mtbalancer.New(cl, s, mtbalancer.Config{Posts: cfg.Scheduling.MTPosts}, logger)
			scorer := timescorer.New(s, timescorer.Config{}, logger)

			p := planner.New(s, balancer, scorer, planner.Config{
				PerHour: cfg.Scheduling.PerHour,
				MinHour: cfg.Window.MinHour,
				MaxHour: cfg.Window.MaxHour,
			}, logger)

			if err := p.Tick(cmd.Context()); err != nil {
				if err == context.Canceled {
					return nil
				}
				return err
			}
			logger.Info().Msg("round command finished")
			return nil
		},
	}
}
