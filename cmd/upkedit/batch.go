package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/upkedit/upkedit/actor"
	"github.com/upkedit/upkedit/edit"
	"github.com/upkedit/upkedit/errors"
)

// batchTargets selects the actors named by args, or, if there are none, the
// actors of class near a point.
func (a *app) batchTargets(cmd *cobra.Command, args []string, class, near string, radius float64) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	x, y, z, err := parsePoint(near)
	if err != nil {
		return nil, err
	}
	pkg, err := a.store.Snapshot(cmd.Context())
	if err != nil {
		return nil, err
	}
	list, w := actor.Near(pkg, class, x, y, z, radius)
	warn(cmd, w)
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Export.ObjectName()
	}
	return names, nil
}

// runBatch queues one edit per actor and waits for all of them. Failed edits
// do not stop the batch; they are returned together.
func (a *app) runBatch(cmd *cobra.Command, label string, names []string, noProgress bool, fn func(name string) edit.Edit) error {
	var bar *progressbar.ProgressBar
	if !noProgress && len(names) > 0 {
		bar = progressbar.Default(int64(len(names)), label)
	}
	results := make([]<-chan error, len(names))
	for i, name := range names {
		results[i] = a.editor.Submit(label+" "+name, fn(name))
	}
	var errs errors.Errors
	done := 0
	for i, r := range results {
		if err := <-r; err != nil {
			errs = errs.Append(fmt.Errorf("%s: %w", names[i], err))
		} else {
			done++
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d actors", label, done, len(names))
	if len(errs) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d failed)", len(errs))
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return errs.Return()
}

func (a *app) batchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Edit many actors at once",
		Long: `Edits each actor given as an argument. Without arguments, edits the actors of
--class within --radius of --near. Each actor is edited in its own session, so
a failure leaves the other actors edited.`,
	}
	var (
		class      string
		near       string
		radius     float64
		noProgress bool
	)
	cmd.PersistentFlags().StringVar(&class, "class", defaultActorClass, "Full class name of the selected actors; empty for any")
	cmd.PersistentFlags().StringVar(&near, "near", "", "Select actors near X,Y,Z")
	cmd.PersistentFlags().Float64Var(&radius, "radius", -1, "Maximum range of selected actors; negative for any")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	var offset string
	move := &cobra.Command{
		Use:   "move [EXPORT...]",
		Short: "Move actors by an offset",
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			d, err := parseVector(offset)
			if err != nil {
				return err
			}
			names, err := a.batchTargets(cmd, args, class, near, radius)
			if err != nil {
				return err
			}
			return a.runBatch(cmd, "move", names, noProgress, func(name string) edit.Edit {
				return edit.UpdateActor(name, func(act *actor.Actor) error {
					v, ok, err := act.Location()
					if err != nil {
						return err
					}
					if !ok {
						return actor.ErrAbsent
					}
					return act.SetLocation(actor.Vector{X: v.X + d.X, Y: v.Y + d.Y, Z: v.Z + d.Z})
				})
			})
		}),
	}
	move.Flags().StringVar(&offset, "offset", "0,0,0", "Offset as X,Y,Z")

	var meshName string
	mesh := &cobra.Command{
		Use:   "mesh [EXPORT...]",
		Short: "Change the static mesh of actors",
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			if meshName == "" {
				return fmt.Errorf("no mesh given")
			}
			names, err := a.batchTargets(cmd, args, class, near, radius)
			if err != nil {
				return err
			}
			return a.runBatch(cmd, "mesh", names, noProgress, func(name string) edit.Edit {
				return edit.SetStaticMesh(name, meshName)
			})
		}),
	}
	mesh.Flags().StringVar(&meshName, "mesh", "", "Full name of the static mesh")

	cmd.AddCommand(move, mesh)
	return cmd
}
