// v0
// cmd/farmmonitor/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MayorChristopher/poultry-management-system/internal/app"
	"github.com/MayorChristopher/poultry-management-system/internal/config"
	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
	"github.com/MayorChristopher/poultry-management-system/internal/status"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "farmmonitor",
		Short:         "Simulated poultry farm monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.AddCommand(serveCmd(), simulateCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "farmmonitor %s\n", version)
		},
	})
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, dashboard monitor and log feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("config_load_failed", slog.Any("err", err))
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		bootstrap.Error("app_init_failed", slog.Any("err", err))
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			bootstrap.Error("app_close_failed", slog.Any("err", cerr))
		}
	}()

	logger := application.Logger()
	logger.Info("service_boot",
		slog.String("listen_address", cfg.ListenAddress),
		slog.String("log_path", cfg.LogFilePath),
		slog.String("properties_path", cfg.PropertiesPath),
		slog.Duration("sample_interval", cfg.SampleInterval),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
		slog.String("kafka_brokers", strings.Join(cfg.KafkaBrokers, ",")),
		slog.Bool("mqtt_enabled", cfg.MQTTEnabled),
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("service_terminated", slog.Any("err", err))
		return err
	}
	logger.Info("service_stopped")
	return nil
}

type simulatedSample struct {
	sensor.Reading
	Status status.Report `json:"status"`
}

func simulateCmd() *cobra.Command {
	var (
		count    int
		interval time.Duration
		seed     int64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Print random-walk readings as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return fmt.Errorf("count must be positive")
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			return simulate(cmd.Context(), cmd.OutOrStdout(), count, interval, rand.New(rand.NewSource(seed)))
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of readings to print")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Delay between readings")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")
	return cmd
}

func simulate(ctx context.Context, out io.Writer, count int, interval time.Duration, rng sensor.Rand) error {
	if ctx == nil {
		ctx = context.Background()
	}
	walker := sensor.NewWalker(sensor.DefaultWalkProfile(), rng)
	enc := json.NewEncoder(out)
	for i := 0; i < count; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
		r := walker.Next(time.Now().UTC())
		if err := enc.Encode(simulatedSample{Reading: r, Status: status.Evaluate(r)}); err != nil {
			return fmt.Errorf("encode reading: %w", err)
		}
	}
	return nil
}
