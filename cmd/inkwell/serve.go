package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/api"
	"inkwell/internal/config"
	"inkwell/internal/event"
	"inkwell/internal/logging"
	"inkwell/internal/metrics"
	"inkwell/internal/version"
	"inkwell/internal/watchsession"

	"github.com/spf13/cobra"
)

const fileChangeBusName = "file_changes"

func newServeCommand(std streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(cmd, std)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServeCommand(cmd *cobra.Command, std streams) error {
	cfg, err := config.Load(cmd.Flags(), config.LoadOptions{})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	signalCh := make(chan os.Signal, 2)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, cancel, cfg, listener, std, signalCh)
}

// serve runs the server on listener until ctx is done or a signal arrives.
func serve(ctx context.Context, cancel context.CancelFunc, cfg config.Config, listener net.Listener, std streams, signalCh <-chan os.Signal) error {
	logger := newLogger(cfg, std)
	defer func() { _ = logger.Sync() }()

	info := version.Get()
	logger.Info("inkwell starting", map[string]string{
		"version": info.Version,
		"commit":  info.Commit,
	})
	config.LogStartup(logger, cfg)

	stopSignals := watchShutdownSignals(logger, cancel, signalCh)
	defer stopSignals()

	registry := metrics.Default
	bus := event.NewBus[event.FileChange](ctx, event.BusOptions{
		Name:     fileChangeBusName,
		Registry: registry,
		Logger:   logger,
	})
	defer bus.Close()

	sessions := watchsession.NewManager(bus, watchsession.Options{
		Logger:   logger,
		Registry: registry,
	})
	defer func() { _ = sessions.Close() }()

	if cfg.WatchRoot != "" {
		if err := sessions.StartWatch(cfg.WatchRoot); err != nil {
			logger.Warn("initial watch failed", map[string]string{
				"path":  cfg.WatchRoot,
				"error": err.Error(),
			})
		}
	}

	server := &http.Server{
		Handler: api.NewRouter(api.RouterOptions{
			Sessions:       sessions,
			Bus:            bus,
			Logger:         logger,
			Registry:       registry,
			AuthToken:      cfg.AuthToken,
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("inkwell listening", map[string]string{
		"addr": listener.Addr().String(),
	})
	runner := &serverRunner{Logger: logger}
	err := runner.Run(ctx, func() error {
		return server.Serve(listener)
	}, server.Shutdown)
	logger.Info("inkwell stopped", nil)
	return err
}

func newLogger(cfg config.Config, std streams) *logging.Logger {
	return logging.NewLoggerWithOptions(logging.Options{
		Buffer: logging.NewLogBuffer(logging.DefaultBufferSize),
		Level:  cfg.EffectiveLogLevel(),
		Output: std.Err,
		Format: cfg.LogFormat,
	})
}
