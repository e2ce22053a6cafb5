package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/core/maintenance"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Sweep deletes every expired session.
func Sweep(ctx context.Context, log *logger.Logger, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("sweep-sessions", flag.ContinueOnError)
	batch := fs.Int("batch", maintenance.DefaultBatchSize, "Sessions deleted per statement")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrHelp
		}
		return fmt.Errorf("parse flags: %w", err)
	}

	removed, err := maintenance.NewSessionSweeper(log, c.Sessions, *batch).Drain(ctx)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}
	log.InfoContext(ctx, "sweep completed", "removed", removed)
	return nil
}
