package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"inkwell/internal/logging"
)

const httpServerShutdownTimeout = 5 * time.Second

// serverRunner serves until stop is done or Serve fails, then shuts down
// within ShutdownTimeout.
type serverRunner struct {
	Logger          *logging.Logger
	ShutdownTimeout time.Duration
}

func (runner *serverRunner) Run(stop context.Context, serve func() error, shutdown func(context.Context) error) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- serve()
	}()

	var initial error
	served := false
	select {
	case initial = <-serveErr:
		served = true
	case <-stop.Done():
	}

	timeout := runner.ShutdownTimeout
	if timeout <= 0 {
		timeout = httpServerShutdownTimeout
	}
	shutdownContext, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if shutdown != nil {
		if err := shutdown(shutdownContext); err != nil && runner.Logger != nil {
			runner.Logger.Warn("http server shutdown failed", map[string]string{
				"error": err.Error(),
			})
		}
	}

	if !served {
		select {
		case initial = <-serveErr:
		case <-time.After(timeout):
		}
	}
	if initial == nil || errors.Is(initial, http.ErrServerClosed) {
		return nil
	}
	if runner.Logger != nil {
		runner.Logger.Error("http server stopped", map[string]string{
			"error": initial.Error(),
		})
	}
	return initial
}
