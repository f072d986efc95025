package main

import (
	"io"
	"os"

	"inkwell/internal/config"

	"github.com/spf13/cobra"
)

type streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

func defaultStreams() streams {
	return streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

func newRootCommand(std streams) *cobra.Command {
	root := &cobra.Command{
		Use:   "inkwell",
		Short: "File access and change notifications for a markdown notes app",
		Long: `inkwell serves read/write/list operations over the local file system and
pushes debounced change notifications for one watched directory tree over a
websocket stream named "file-change".

Running inkwell without a subcommand starts the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(cmd, std)
		},
	}
	root.SetIn(std.In)
	root.SetOut(std.Out)
	root.SetErr(std.Err)
	config.RegisterFlags(root.Flags())

	root.AddCommand(
		newServeCommand(std),
		newCatCommand(std),
		newWriteCommand(std),
		newListCommand(std),
		newMarkdownCommand(std),
		newExistsCommand(std),
		newStatCommand(std),
		newWatchCommand(std),
		newRemoteCommand(std),
		newVersionCommand(std),
	)
	return root
}
