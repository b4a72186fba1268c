package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"speed-monitor/internal/config"
	"speed-monitor/internal/csvlog"
	"speed-monitor/internal/database"
	"speed-monitor/internal/metrics"
	"speed-monitor/internal/models"
	"speed-monitor/internal/monitor"
	"speed-monitor/internal/speedtest"
	"speed-monitor/internal/web"
)

var (
	v      = viper.New()
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "speedmon",
	Short:         "Continuously measure network speed and log results to CSV",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger, err = buildLogger(cfg.Debug)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	if err := config.RegisterFlags(rootCmd.Flags(), v); err != nil {
		panic(err)
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func run(ctx context.Context) error {
	defer logger.Sync()

	runID := uuid.NewString()
	fmt.Println("Starting continuous speedtester. Press Ctrl+C to stop.")
	logger.Info("starting", zap.String("run_id", runID), zap.String("log", cfg.LogPath))

	stores := []models.RecordStore{csvlog.Open(cfg.LogPath)}

	var db *database.DB
	if cfg.DatabasePath != "" {
		var err error
		db, err = database.New(cfg.DatabasePath, runID)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		stores = append(stores, db)
	}

	collector := metrics.New()
	measurer := speedtest.New(cfg.ServerIDs, cfg.MeasureTimeout, logger.Named("speedtest"))
	mon := monitor.New(cfg, measurer, stores, logger.Named("monitor"), monitor.WithObserver(collector))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return mon.Run(gctx)
	})

	if cfg.MetricsAddr != "" {
		var recent web.RecentSource
		if db != nil {
			recent = db
		}
		server := web.New(cfg.MetricsAddr, collector, recent, runID, logger.Named("web"))
		g.Go(func() error {
			return server.Start(gctx)
		})
	}

	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if logger != nil {
			logger.Error("speedmon stopped", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Println("\nStopped by user. CSV saved.")
	}
}
