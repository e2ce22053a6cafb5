package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jrazmi/growlog/app/tooling/commands"
	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/sdk/environment"
	"github.com/jrazmi/growlog/sdk/logger"
)

var build = "develop"
var appName = "TOOLING"

func processCommands(ctx context.Context, log *logger.Logger, cfg client.Config, command string, args []string) error {
	switch command {
	case "migrate":
		log.InfoContext(ctx, "running migration")
		if err := commands.Migrate(ctx, log, cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil

	case "check-schema":
		log.InfoContext(ctx, "running schema check")
		if err := commands.CheckSchema(ctx, log, cfg, args); err != nil {
			return fmt.Errorf("check schema failed: %w", err)
		}
		return nil

	case "seed", "sweep-sessions":
		c, err := client.New(cfg, client.WithLogger(log))
		if err != nil {
			return fmt.Errorf("configuring client: %w", err)
		}
		defer func() {
			log.InfoContext(ctx, "shutdown", "status", "closing database connection")
			c.Disconnect(context.WithoutCancel(ctx))
		}()
		if command == "seed" {
			return commands.Seed(ctx, log, c)
		}
		return commands.Sweep(ctx, log, c, args)

	default:
		printHelp()
		return nil
	}
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  migrate        - apply the embedded migrations of the configured backend")
	fmt.Println("  check-schema   - compare the database with the models, optionally writing JSON")
	fmt.Println("  seed           - insert a demo grower with plants, tags and logs")
	fmt.Println("  sweep-sessions - delete expired sessions")
	fmt.Println()
	fmt.Println("The backend is chosen by TOOLING_DATABASE_URL.")
	fmt.Println("Use 'go run app/tooling/main.go <command> --help' for command-specific help.")
}

func run(ctx context.Context, log *logger.Logger) error {
	log.InfoContext(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "build", build)

	var command string
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command == "" || command == "help" || command == "--help" || command == "-h" {
		printHelp()
		return nil
	}

	cfg, err := client.LoadConfig(appName, os.Getenv(appName+"_CONFIG"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		args := []string{}
		if len(os.Args) > 2 {
			args = os.Args[2:]
		}
		done <- processCommands(ctx, log, cfg, command, args)
	}()

	select {
	case err := <-done:
		if errors.Is(err, commands.ErrHelp) {
			return nil
		}
		return err

	case <-ctx.Done():
		log.InfoContext(ctx, "shutdown", "status", "shutdown started")

		// Give a short time for commands to complete
		timer := time.NewTimer(5 * time.Second)
		defer timer.Stop()
		select {
		case err := <-done:
			return err
		case <-timer.C:
			return errors.New("shutdown timeout")
		}
	}
}

func main() {
	environment.LoadEnv()

	log, err := logger.NewFromEnv(appName)
	if err != nil {
		fmt.Println("oh no we couldn't even get logging going.")
		os.Exit(1)
	}
	ctx := context.Background()

	if err = run(ctx, log); err != nil {
		log.ErrorContext(ctx, "startup", "err", err)
		os.Exit(1)
	}
}
