package cli

import (
	"github.com/spf13/cobra"

	"github.com/newsline-bot/editor-engine/internal/config"
	"github.com/newsline-bot/editor-engine/internal/infra/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Initialize the store schema",
		Long:  "migrate opens the SQLite store, which creates any missing tables, then exits.",
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

			logger.Info().Str("path", cfg.DatabasePath).Msg("store schema is up to date")
			return nil
		},
	}
}
