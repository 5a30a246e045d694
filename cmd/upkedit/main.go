// The upkedit command inspects and edits a package held in a package store.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/upkedit/upkedit/edit"
	"github.com/upkedit/upkedit/store"
)

const (
	envDatabase = "UPKEDIT_DB"
	envDebug    = "UPKEDIT_DEBUG"
)

// app holds the state shared by the commands.
type app struct {
	dbPath  string
	verbose bool
	backup  bool
	codec   string

	log    *log.Logger
	store  *store.Store
	editor *edit.Editor
	queue  *edit.Queue
}

func main() {
	a := &app{}
	err := a.rootCommand().Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "upkedit",
		Short:         "Inspect and edit the objects of a package",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	dbDefault := os.Getenv(envDatabase)
	if dbDefault == "" {
		dbDefault = "package.db"
	}
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", dbDefault, "Path to the package store (env "+envDatabase+")")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", os.Getenv(envDebug) != "", "Log diagnostic messages (env "+envDebug+")")
	rootCmd.PersistentFlags().BoolVar(&a.backup, "backup", true, "Back up object data before it is overwritten")
	rootCmd.PersistentFlags().StringVar(&a.codec, "codec", string(store.LZ4), "Compression of backups: lz4 or zstd")

	rootCmd.AddCommand(
		a.initCommand(),
		a.importCommand(),
		a.exportCommand(),
		a.statCommand(),
		a.dumpCommand(),
		a.decompileCommand(),
		a.meshCommand(),
		a.actorCommand(),
		a.batchCommand(),
		a.backupsCommand(),
		a.restoreCommand(),
		a.shellCommand(),
		a.serveCommand(),
	)
	return rootCmd
}

// open opens the store and starts the editor on first use.
func (a *app) open() error {
	if a.store != nil {
		return nil
	}
	out := io.Discard
	if a.verbose {
		out = os.Stderr
	}
	a.log = log.New(out, "", log.LstdFlags)

	codec, err := store.ParseCodec(a.codec)
	if err != nil {
		return err
	}
	a.log.Printf("[open] %s", a.dbPath)
	s, err := store.Open(a.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.Codec = codec
	s.Log = a.log
	a.store = s
	a.queue = edit.NewQueue(context.Background(), 16)
	a.editor = &edit.Editor{
		Store:  s,
		Queue:  a.queue,
		Backup: a.backup,
		Log:    a.log,
	}
	return nil
}

func (a *app) close() {
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}

// withStore wraps a command body, opening the store first.
func (a *app) withStore(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(); err != nil {
			return err
		}
		return run(cmd, args)
	}
}

// warn prints a warning to the error stream of the command.
func warn(cmd *cobra.Command, w error) {
	if w != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
	}
}
