// Package cli implements the radar command line.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	radar "github.com/krisalay/package-radar"
	"github.com/krisalay/package-radar/internal/config"
	"github.com/krisalay/package-radar/internal/dashboard"
	"github.com/krisalay/package-radar/internal/logging"
	"github.com/krisalay/package-radar/internal/registry"
	"github.com/krisalay/package-radar/internal/registry/github"
	"github.com/krisalay/package-radar/internal/registry/npm"
)

// app is what every subcommand runs against. It is built once the persistent
// flags are parsed.
type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	radar     *radar.Store
	dashboard *dashboard.Service
}

// NewRootCmd creates the radar root command with every subcommand attached.
func NewRootCmd(ver string) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "radar",
		Short:         "Track npm package versions and their changelogs",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (default $RADAR_CONFIG or ./radar.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	cmd.AddCommand(
		newServeCmd(a),
		newOverviewCmd(a),
		newVersionsCmd(a),
		newChangelogCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ver string) int {
	if err := NewRootCmd(ver).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// setup loads the config, applies flag overrides and wires the radar.
func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	// flags win over the file and the environment
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = zerolog.DebugLevel.String()
	}

	logCfg := cfg.Logging()
	logCfg.Out = cmd.ErrOrStderr()
	logger := logging.New(logCfg)

	store, err := radar.New(cfg.Radar(), radar.WithLogger(logging.Component(logger, "radar")))
	if err != nil {
		return fmt.Errorf("building radar: %w", err)
	}

	httpClient := registry.NewHTTPClient()
	if cfg.Registry.Timeout > 0 {
		httpClient.Timeout = cfg.Registry.Timeout
	}
	svc := dashboard.NewService(
		store.Cache,
		npm.NewClient(cfg.Registry.NpmURL, httpClient),
		github.NewClient(cfg.Registry.GitHubURL, cfg.Registry.GitHubToken, httpClient),
	)
	svc.SetConcurrency(cfg.Registry.Concurrency)

	a.cfg = cfg
	a.logger = logger
	a.radar = store
	a.dashboard = svc
	return nil
}
