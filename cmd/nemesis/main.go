package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cluster-nemesis/internal/api"
	"cluster-nemesis/internal/assets"
	"cluster-nemesis/internal/cluster"
	"cluster-nemesis/internal/config"
	"cluster-nemesis/internal/history"
	"cluster-nemesis/internal/logging"
	"cluster-nemesis/internal/monitoring"
	"cluster-nemesis/internal/nemesis"
	"cluster-nemesis/internal/workload"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Nemesis failed: %v", err)
	}
}

func run(cfg *config.Config) error {
	logger := logging.NewLogger(&cfg.Logging)
	logger.Info("starting cluster nemesis", "cluster", cfg.Cluster.Name, "strategy", cfg.Nemesis.Strategy)

	strategy, ok := nemesis.StrategyByName(cfg.Nemesis.Strategy)
	if !ok {
		return fmt.Errorf("unknown strategy %q", cfg.Nemesis.Strategy)
	}

	resolver, err := assets.NewResolver(cfg.Nemesis.AssetDir)
	if err != nil {
		return fmt.Errorf("preparing assets: %w", err)
	}
	defer resolver.Close()

	clst, err := cluster.New(cfg.Cluster, logger)
	if err != nil {
		return fmt.Errorf("building cluster: %w", err)
	}

	opts := []nemesis.Option{
		nemesis.WithLogger(logger),
		nemesis.WithAssets(resolver),
	}

	var journal *history.Journal
	if cfg.History.Enabled {
		journal, err = history.Open(history.Config{
			DataPath: cfg.History.DataPath,
			InMemory: cfg.History.InMemory,
		})
		if err != nil {
			return fmt.Errorf("opening history journal: %w", err)
		}
		defer journal.Close()
		opts = append(opts, nemesis.WithSink(journal))
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		monitoring.Register()
		metricsHandler = monitoring.Handler()
		opts = append(opts, nemesis.WithSink(monitoring.NewRecorder()))
	}

	engine, err := nemesis.New(clst, opts...)
	if err != nil {
		return fmt.Errorf("building disruption engine: %w", err)
	}
	if cfg.Metrics.Enabled {
		monitoring.RegisterCycleCounter(engine.CycleCount)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Workload.Enabled {
		runner := workload.NewRunner(cfg.Workload, logger)
		defer runner.Close()
		if err := runner.Ping(ctx); err != nil {
			return err
		}
		go runner.Run(ctx)
		defer func() {
			if err := runner.Verify(); err != nil {
				logger.Error("workload verification failed", "error", err)
			}
		}()
	}

	if cfg.API.Enabled {
		var reader api.HistoryReader
		if journal != nil {
			reader = journal
		}
		handler := api.NewRESTHandler(engine, reader, logger, metricsHandler)
		server := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
			Handler:      handler.SetupRoutes(),
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
		}
		go func() {
			logger.Info("control API listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("control API failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	err = engine.Run(ctx, cfg.Nemesis.IntervalMinutes, strategy)
	if err == context.Canceled {
		logger.Info("nemesis stopped", "cycles", engine.CycleCount())
		return nil
	}
	return err
}

func printUsage() {
	fmt.Printf(`Cluster Nemesis - fault injection driver for distributed database clusters

Usage:
  %s [options]

Options:
  -config string
        Path to configuration file (default "config.yaml")
  -h, --help
        Show this help message

Environment Variables:
  Configuration can be overridden using environment variables with NEMESIS_ prefix.

Examples:
  # Start with default config
  %s

  # Start with custom config file
  %s -config /path/to/config.yaml

  # Start with environment override
  NEMESIS_STRATEGY=chaos-monkey %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}
