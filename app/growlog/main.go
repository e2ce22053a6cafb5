package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jrazmi/growlog/app/growlog/api"
	"github.com/jrazmi/growlog/app/growlog/config"
	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/core/maintenance"
	"github.com/jrazmi/growlog/infrastructure/metrics"
	"github.com/jrazmi/growlog/infrastructure/web"
	"github.com/jrazmi/growlog/infrastructure/workers"
	"github.com/jrazmi/growlog/sdk/environment"
	"github.com/jrazmi/growlog/sdk/logger"
)

var build = "develop"
var appName = "GROWLOG"

func main() {
	environment.LoadEnv()
	ctx := context.Background()

	cfg, err := config.Load(appName, os.Getenv(appName+"_CONFIG"))
	if err != nil {
		fmt.Println("oh no we couldn't even load the config:", err)
		os.Exit(1)
	}
	log := logger.NewFromOptions(cfg.Log)

	if err := run(ctx, log, cfg); err != nil {
		log.ErrorContext(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, cfg config.Growlog) error {
	log.InfoContext(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "build", build)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// :*: DATA :*:
	collector := metrics.New(nil)
	db, err := client.New(cfg.Database,
		client.WithLogger(log),
		client.WithObserver(collector.Observe),
		client.WithQueryHook(collector.ObserveQuery),
	)
	if err != nil {
		return fmt.Errorf("configuring client: %w", err)
	}
	defer func() {
		log.InfoContext(ctx, "shutdown", "status", "closing database connection")
		db.Disconnect(context.WithoutCancel(ctx))
	}()
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("connecting %s: %w", db.Backend(), err)
	}
	log.InfoContext(ctx, "init", "backend", db.Backend())

	// :*: WORKERS :*:
	poolErrors := make(chan error, 1)
	if cfg.Sweeper.Enabled {
		sweeper := maintenance.NewSessionSweeper(log, db.Sessions, cfg.Sweeper.Batch)
		var counters workers.Counters
		pool := workers.New(sweeper, cfg.Sweeper.Workers,
			workers.WithLogger(log),
			workers.WithMetrics(workers.Multi{collector.Pool(), &counters}),
			workers.WithMiddleware(workers.ConsecutiveErrorShutdown(5)),
		)
		pool.AddPostProcessHooks(workers.LogOutcomeHook[maintenance.SweepTask](log))
		go func() {
			poolErrors <- pool.Start(ctx)
		}()
		defer func() {
			pool.Stop()
			snap := counters.Snapshot()
			log.InfoContext(ctx, "shutdown", "worker", cfg.Sweeper.Workers.Name,
				"sweeps", snap.TasksCompleted, "failed", snap.TasksFailed, "removed", sweeper.Removed())
		}()
		log.InfoContext(ctx, "init", "worker", cfg.Sweeper.Workers.Name)
	}

	// :*: HTTP :*:
	handler, err := api.Handler(api.Config{
		Build:   build,
		Log:     log,
		Client:  db,
		Metrics: collector,
		Web:     cfg.Web,
		CORS:    cfg.CORS,
		Models:  cfg.Models,
	})
	if err != nil {
		return fmt.Errorf("building routes: %w", err)
	}
	server := web.NewServer(cfg.Web,
		web.WithHandler(handler),
		web.WithErrorLog(logger.NewStdLogger(log, slog.LevelError)),
	)

	serverErrors := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "startup", "status", "api router started", "host", server.Addr)
		serverErrors <- server.Run(ctx)
	}()

	select {
	case err := <-serverErrors:
		return err
	case err := <-poolErrors:
		if err != nil && !errors.Is(err, context.Canceled) {
			stop()
			<-serverErrors
			return fmt.Errorf("session sweeper: %w", err)
		}
		return <-serverErrors
	}
}
