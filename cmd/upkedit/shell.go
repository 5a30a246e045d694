package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

func (a *app) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against an open store",
		Long: `Reads commands line by line and runs each of them as an upkedit command,
keeping the store open between them. Arguments are split the way a POSIX shell
splits them. Type 'exit' to quit.`,
		Args: cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Opened %s\n", a.dbPath)
			fmt.Fprintln(out, "Type commands. 'help' for information or 'exit' to quit.")

			reader := bufio.NewReader(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")

				line, err := reader.ReadString('\n')
				if err == io.EOF && line == "" {
					fmt.Fprintln(out)
					return nil
				}
				if err != nil && err != io.EOF {
					return fmt.Errorf("input error: %w", err)
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" {
					return nil
				}

				words, err := shellquote.Split(line)
				if err != nil {
					fmt.Fprintln(out, "parse error:", err)
					continue
				}
				if len(words) > 0 && words[0] == "shell" {
					fmt.Fprintln(out, "already in a shell")
					continue
				}
				a.runLine(cmd, words)
			}
		}),
	}
}

// runLine runs one shell command on a fresh command tree that shares the open
// store and editor. Errors are printed by cobra and do not end the shell.
func (a *app) runLine(parent *cobra.Command, words []string) {
	sub := &app{
		log:    a.log,
		store:  a.store,
		editor: a.editor,
		queue:  a.queue,
	}
	root := sub.rootCommand()
	root.SetArgs(words)
	root.SetIn(parent.InOrStdin())
	root.SetOut(parent.OutOrStdout())
	root.SetErr(parent.ErrOrStderr())
	root.ExecuteContext(parent.Context())
}
