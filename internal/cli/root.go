// Package cli wires the editor-engine binary's subcommands: serve runs the
// daemon, round triggers a single planning round, migrate initializes the
// store schema, and version reports build info.
package cli

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

// Execute runs the root command; cmd/editor-engine/main.go's sole job is to
// call this and exit with its return status.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "editor-engine",
		Short: "Automated content-publishing pipeline",
		Long: "editor-engine scores, schedules, and publishes queued posts to a " +
			"social channel, coordinating its components purely through a shared " +
			"SQLite store.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (optional; defaults are used if omitted)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newServeCmd())
	root.AddCommand(newRoundCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// newLogger builds the process-wide logger: pretty console output on a TTY,
// structured JSON otherwise, matching zerolog's own documented idiom.
func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	writer := os.Stderr
	ctx := zerolog.New(writer).With().Timestamp()
	if isatty.IsTerminal(writer.Fd()) {
		ctx = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}).With().Timestamp()
	}
	return ctx.Logger().Level(level)
}

// secondsToDuration converts a TTL expressed in seconds into a
// time.Duration, for config fields stored as plain ints.
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
