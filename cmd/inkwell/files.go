package main

import (
	"encoding/json"
	"fmt"
	"io"

	"inkwell/internal/fsaccess"

	"github.com/spf13/cobra"
)

func newCatCommand(std streams) *cobra.Command {
	return &cobra.Command{
		Use:   "cat PATH",
		Short: "Print a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := fsaccess.ReadTextFile(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(std.Out, content)
			return err
		},
	}
}

func newWriteCommand(std streams) *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "write PATH",
		Short: "Write a text file, creating parent directories",
		Long:  "Write replaces PATH with --content, or with standard input when --content is not given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := content
			if !cmd.Flags().Changed("content") {
				data, err := io.ReadAll(std.In)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			return fsaccess.WriteTextFile(args[0], text)
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "content to write instead of reading stdin")
	return cmd
}

func newListCommand(std streams) *cobra.Command {
	return &cobra.Command{
		Use:   "ls PATH",
		Short: "List the visible children of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := fsaccess.ListDir(args[0])
			if err != nil {
				return err
			}
			return printJSON(std.Out, listing)
		},
	}
}

func newMarkdownCommand(std streams) *cobra.Command {
	return &cobra.Command{
		Use:   "md PATH",
		Short: "List markdown files below a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := fsaccess.ListMarkdownFiles(args[0])
			if err != nil {
				return err
			}
			return printJSON(std.Out, entries)
		},
	}
}

func newExistsCommand(std streams) *cobra.Command {
	return &cobra.Command{
		Use:   "exists PATH",
		Short: "Report whether a path exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(std.Out, map[string]bool{"exists": fsaccess.PathExists(args[0])})
		},
	}
}

func newStatCommand(std streams) *cobra.Command {
	return &cobra.Command{
		Use:   "stat PATH",
		Short: "Print metadata for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := fsaccess.Stat(args[0])
			if err != nil {
				return err
			}
			return printJSON(std.Out, metadata)
		},
	}
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
