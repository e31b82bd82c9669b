package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ZamarianPatrick/pms/api"
	"github.com/ZamarianPatrick/pms/config"
	"github.com/ZamarianPatrick/pms/metrics"
	"github.com/ZamarianPatrick/pms/monitor"
	"github.com/ZamarianPatrick/pms/sensors"
	"github.com/ZamarianPatrick/pms/store"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "pms <config>",
	Short: "Plant monitor system",
	Long: `pms samples light intensity and soil moisture from an MCP3008 and
humidity and temperature from a DHT probe, and appends every reading to a
SQLite database. It runs until the process is killed.`,
	Version:      version,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

// Execute runs the root command and exits with 1 on any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(readingsCmd, initConfigCmd)
}

func run(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stderr)
	logger.Info("started", "command", os.Args[0], "version", version)

	station, err := sensors.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sensors: %w", err)
	}

	var opts []store.Option
	if cfg.Debug() {
		opts = append(opts, store.WithGormLogging())
	}
	db := store.New(cfg.DatabaseName, logger, opts...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mon := monitor.New(station, db, cfg.Interval(), logger, metrics.New(registry))

	if cfg.HTTP.Listen != "" {
		srv := api.NewServer(db, mon, registry, logger)
		go func() {
			if err := srv.ListenAndServe(cfg.HTTP.Listen); err != nil {
				logger.Error("http api stopped", "error", err)
			}
		}()
	}

	return mon.Run(context.Background())
}
