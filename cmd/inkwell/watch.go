package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/event"
	"inkwell/internal/logging"
	"inkwell/internal/metrics"
	"inkwell/internal/watchsession"

	"github.com/spf13/cobra"
)

type watchLine struct {
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func newWatchCommand(std streams) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "watch PATH",
		Short: "Print file-change notifications for a directory tree as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			level := logging.LevelWarning
			if verbose {
				level = logging.LevelDebug
			}
			logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(256), level, std.Err)
			return runWatch(ctx, args[0], std, logger, 0)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log watcher activity to stderr")
	return cmd
}

// runWatch streams notifications for root to std.Out until ctx is done.
func runWatch(ctx context.Context, root string, std streams, logger *logging.Logger, debounce time.Duration) error {
	registry := metrics.NewRegistry()
	bus := event.NewBus[event.FileChange](ctx, event.BusOptions{
		Name:     fileChangeBusName,
		Registry: registry,
		Logger:   logger,
	})
	defer bus.Close()

	changes, cancel := bus.Subscribe()
	defer cancel()

	sessions := watchsession.NewManager(bus, watchsession.Options{
		Logger:   logger,
		Registry: registry,
		Debounce: debounce,
	})
	defer func() { _ = sessions.Close() }()

	if err := sessions.StartWatch(root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			line := watchLine{
				Type:      change.Type(),
				Path:      change.Path,
				Kind:      change.Kind,
				Timestamp: change.Timestamp(),
			}
			if err := writeJSONLine(std, line); err != nil {
				return err
			}
		}
	}
}

func writeJSONLine(std streams, value any) error {
	return json.NewEncoder(std.Out).Encode(value)
}
