// auto-analysis — демон автоматического анализа sequencing runs.
//
// Демон:
//   - Периодически перечитывает файл конфигурации
//   - Находит runs в fastq_by_run_dir
//   - Запускает сконфигурированные pipelines в объявленном порядке
//   - Убирает work dir, архивирует результаты и рассылает уведомления
//
// Использование:
//
//	auto-analysis -c config.json [--log-level debug] [--once]
//	auto-analysis notify -c config.json --analysis-outdir DIR
//
// Первый SIGINT/SIGTERM переводит цикл в режим остановки: текущий проход
// дорабатывается до конца, процесс завершается с кодом 0.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/autoanalysis/internal/api"
	"github.com/shaiso/autoanalysis/internal/archive"
	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/mq"
	"github.com/shaiso/autoanalysis/internal/notification"
	"github.com/shaiso/autoanalysis/internal/orchestrator"
	"github.com/shaiso/autoanalysis/internal/pipelines"
	"github.com/shaiso/autoanalysis/internal/repo"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

const (
	defaultMetricsPort = "8090"
	mqDialTimeout      = 30 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func main() {
	var configPath string
	var logLevel string
	var once bool

	rootCmd := &cobra.Command{
		Use:           "auto-analysis",
		Short:         "Automated analysis of sequencing runs",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := telemetry.SetupLogger(logLevel)
			return runDaemon(logger, configPath, once)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL, then info)")
	rootCmd.Flags().BoolVar(&once, "once", false, "Run a single scan and exit")
	rootCmd.MarkPersistentFlagRequired("config")

	rootCmd.AddCommand(newNotifyCmd(&configPath, &logLevel))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runDaemon(logger *slog.Logger, configPath string, once bool) error {
	logger.Info("starting auto-analysis", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := config.NewStore(configPath, config.Load)
	if _, err := store.Reload(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sinks := telemetry.MultiSink{telemetry.NewLogSink(logger)}

	// Журнал событий в PostgreSQL (опционально)
	var events *repo.EventRepo
	if dsn := repo.DSNFromEnv(); dsn != "" {
		pool, err := repo.NewPool(ctx, dsn)
		if err != nil {
			logger.Warn("database not available, event log disabled", "error", err)
		} else {
			defer pool.Close()
			events = repo.NewEventRepo(pool, logger)
			if err := events.EnsureSchema(ctx); err != nil {
				logger.Warn("failed to ensure event schema", "error", err)
			}
			sinks = append(sinks, events)
			logger.Info("database connected")
		}
	}

	// RabbitMQ (опционально)
	dispatchers := notification.MultiDispatcher{notification.NewEmailDispatcher(nil, logger)}
	if mqURL := os.Getenv("RABBITMQ_URL"); mqURL != "" {
		dialCtx, dialCancel := context.WithTimeout(ctx, mqDialTimeout)
		conn, err := mq.Dial(dialCtx, mqURL, logger)
		dialCancel()
		if err != nil {
			logger.Warn("RabbitMQ not available, completion events disabled", "error", err)
		} else {
			defer conn.Close()
			if err := mq.SetupTopology(ctx, conn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			dispatchers = append(dispatchers, notification.NewAMQPDispatcher(mq.NewPublisher(conn, logger)))
			logger.Info("RabbitMQ connected")
		}
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Store:    store,
		Notifier: dispatchers,
		Registry: pipelines.DefaultRegistry(archive.NewFactory(logger)),
		Sink:     sinks,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// Первый сигнал — мягкая остановка, повторные игнорируются
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for sig := range sigCh {
			logger.Info("signal received", "signal", sig.String())
			orch.Drain()
		}
	}()

	server := newServer(orch, events, logger)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if once {
		err = orch.RunOnce(ctx)
	} else {
		err = orch.Run(ctx)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Error("shutdown error", "error", serr)
	}

	if err != nil {
		return err
	}
	logger.Info("auto-analysis stopped")
	return nil
}

// newServer собирает HTTP-сервер: /healthz, /metrics и status API.
func newServer(orch *orchestrator.Orchestrator, events *repo.EventRepo, logger *slog.Logger) *http.Server {
	cfg := api.Config{Status: orch, Logger: logger}
	if events != nil {
		cfg.Events = events
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	api.NewHandler(cfg).RegisterRoutes(mux)

	port := defaultMetricsPort
	if v := os.Getenv("METRICS_PORT"); v != "" {
		port = v
	}

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
