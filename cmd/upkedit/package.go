package main

import (
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/actor"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/declare"
	"github.com/upkedit/upkedit/json"
)

// emptyLevel returns a level package with no actors.
func emptyLevel(name string) *upkedit.Package {
	// None, then the actor list and the secondary list, each an empty
	// array with its max and count.
	level := append(compact.Bytes(0), make([]byte, 16)...)
	return declare.Package{
		declare.Export(actor.LevelName, actor.LevelClass, declare.Raw(level)),
		declare.Export("LevelInfo0", "Engine.LevelInfo", declare.Frame(),
			declare.Property("Level", declare.Object, actor.LevelName),
			declare.Property("Tag", declare.Name, "LevelInfo"),
		),
	}.Declare(name)
}

func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init <NAME>",
		Short: "Replace the package in the store with an empty level",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			return a.store.Import(cmd.Context(), emptyLevel(args[0]))
		}),
	}
}

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <FILE>",
		Short: "Replace the package in the store with a package in JSON format",
		Long: `Reads a package in JSON format from FILE and replaces the package held by
the store with it. If FILE is "-", stdin is used. Backups are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			var input io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				input = f
			}
			b, err := io.ReadAll(input)
			if err != nil {
				return err
			}
			pkg, err := json.Decode(b)
			if err != nil {
				return err
			}
			if err := a.store.Import(cmd.Context(), pkg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d names, %d imports, %d exports\n",
				pkg.Name, len(pkg.Names), len(pkg.Imports), len(pkg.Exports))
			return nil
		}),
	}
}

func (a *app) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the package in the store in JSON format",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			pkg, err := a.store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			b, err := json.Encode(pkg)
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			return os.WriteFile(args[0], b, 0666)
		}),
	}
}

func (a *app) backupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backups [EXPORT]",
		Short: "List the backups of an export, or of every export",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			idx := -1
			if len(args) > 0 {
				pkg, err := a.store.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				e, err := findExport(pkg, args[0])
				if err != nil {
					return err
				}
				idx = e.Index
			}
			list, err := a.store.Backups(cmd.Context(), idx)
			if err != nil {
				return err
			}
			for _, b := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\texport %d\t%s\t%d bytes\t%s\n",
					b.Digest, b.Export, b.Codec, b.Size, b.Created.Format("2006-01-02 15:04:05"))
			}
			return nil
		}),
	}
}

func (a *app) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <DIGEST>",
		Short: "Write a backup back to its export",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			d, err := digest.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse digest: %w", err)
			}
			return a.store.Restore(cmd.Context(), d)
		}),
	}
}
