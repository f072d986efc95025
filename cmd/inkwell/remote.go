package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"inkwell/internal/client"
	"inkwell/internal/config"

	"github.com/spf13/cobra"
)

type remoteOptions struct {
	url   string
	token string
}

// baseURL falls back to the configured listen address.
func (options remoteOptions) baseURL() string {
	if url := strings.TrimSpace(options.url); url != "" {
		return url
	}
	return "http://" + config.DefaultAddr
}

func (options remoteOptions) authToken() string {
	if token := strings.TrimSpace(options.token); token != "" {
		return token
	}
	return os.Getenv("INKWELL_TOKEN")
}

func newRemoteCommand(std streams) *cobra.Command {
	options := &remoteOptions{}
	httpClient := &http.Client{Timeout: 10 * time.Second}

	remote := &cobra.Command{
		Use:   "remote",
		Short: "Control the watch session of a running server",
	}
	remote.PersistentFlags().StringVar(&options.url, "url", "", "server base URL (default http://"+config.DefaultAddr+")")
	remote.PersistentFlags().StringVar(&options.token, "token", "", "auth token (default $INKWELL_TOKEN)")

	remote.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Print the current watch session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				status, err := client.WatchStatus(httpClient, options.baseURL(), options.authToken())
				if err != nil {
					return err
				}
				return printJSON(std.Out, status)
			},
		},
		&cobra.Command{
			Use:   "watch PATH",
			Short: "Replace the watch session with one on PATH",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				status, err := client.StartWatch(httpClient, options.baseURL(), options.authToken(), args[0])
				if err != nil {
					return err
				}
				return printJSON(std.Out, status)
			},
		},
		&cobra.Command{
			Use:   "unwatch",
			Short: "Stop the watch session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return client.StopWatch(httpClient, options.baseURL(), options.authToken())
			},
		},
	)
	return remote
}
