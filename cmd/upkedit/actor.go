package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/actor"
	"github.com/upkedit/upkedit/edit"
	"github.com/upkedit/upkedit/props"
	"github.com/upkedit/upkedit/store"
)

const defaultActorClass = "Engine.StaticMeshActor"

// parseFloats parses n comma-separated numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %q", n, s)
	}
	v := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		v[i] = f
	}
	return v, nil
}

func parseVector(s string) (actor.Vector, error) {
	v, err := parseFloats(s, 3)
	if err != nil {
		return actor.Vector{}, err
	}
	return actor.Vector{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}, nil
}

func parseRotator(s string) (actor.Rotator, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return actor.Rotator{}, fmt.Errorf("expected 3 comma-separated values, got %q", s)
	}
	var v [3]int32
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return actor.Rotator{}, fmt.Errorf("parse %q: %w", p, err)
		}
		v[i] = int32(n)
	}
	return actor.Rotator{Pitch: v[0], Yaw: v[1], Roll: v[2]}, nil
}

// parsePoint parses up to three comma-separated coordinates. An empty or "*"
// coordinate is left nil.
func parsePoint(s string) (x, y, z *float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) > 3 {
		return nil, nil, nil, fmt.Errorf("expected at most 3 coordinates, got %q", s)
	}
	axes := [3]*float64{}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "*" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse %q: %w", p, err)
		}
		axes[i] = &f
	}
	return axes[0], axes[1], axes[2], nil
}

func formatVector(v actor.Vector) string {
	return fmt.Sprintf("(X=%g,Y=%g,Z=%g)", v.X, v.Y, v.Z)
}

func formatRotator(r actor.Rotator) string {
	return fmt.Sprintf("(Pitch=%d,Yaw=%d,Roll=%d)", r.Pitch, r.Yaw, r.Roll)
}

func (a *app) actorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Inspect and edit placed actors",
	}
	cmd.AddCommand(
		a.actorGetCommand(),
		a.actorSetCommand(),
		a.actorNearCommand(),
		a.actorAddCommand(),
		a.actorCopyCommand(),
		a.actorMapCommand(),
	)
	return cmd
}

// describeActor writes the fields of an actor.
func describeActor(b *strings.Builder, pkg *upkedit.Package, e *upkedit.ExportEntry) error {
	act, err := actor.Open(e, pkg)
	if err != nil {
		return err
	}
	offsets, err := act.Offsets()
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "%s\n", e)
	fmt.Fprintf(b, "%s\n", offsets)
	if ref, ok, _ := act.StaticMesh(); ok {
		name := "None"
		if ent, err := pkg.ObjectReference(ref); err != nil {
			name = err.Error()
		} else if ent != nil {
			name = ent.ObjectFullName()
		}
		fmt.Fprintf(b, "StaticMesh=%s\n", name)
	}
	if v, ok, _ := act.Location(); ok {
		fmt.Fprintf(b, "Location=%s\n", formatVector(v))
	}
	if r, ok, _ := act.Rotation(); ok {
		fmt.Fprintf(b, "Rotation=%s\n", formatRotator(r))
	}
	if r, ok, _ := act.RotationRate(); ok {
		fmt.Fprintf(b, "RotationRate=%s\n", formatRotator(r))
	}
	if s, ok, _ := act.DrawScale(); ok {
		fmt.Fprintf(b, "DrawScale=%g\n", s)
	}
	if v, ok, _ := act.DrawScale3D(); ok {
		fmt.Fprintf(b, "DrawScale3D=%s\n", formatVector(v))
	}
	if states, ok, _ := act.ZoneRenderState(); ok {
		fmt.Fprintf(b, "ZoneRenderState=%v\n", states)
	}
	return nil
}

func (a *app) actorGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <EXPORT>",
		Short: "Display the placement fields of an actor",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			pkg, e, err := a.snapshotExport(cmd, args[0])
			if err != nil {
				return err
			}
			var b strings.Builder
			if err := describeActor(&b, pkg, e); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		}),
	}
}

// actorChanges holds the values given to actor set.
type actorChanges struct {
	location     string
	rotation     string
	rotationRate string
	scale        float64
	scale3D      string
	mesh         string
	zone         []int
}

// edit returns the edit applying the changed flags of cmd to the named actor.
func (c *actorChanges) edit(cmd *cobra.Command, name string) (edit.Edit, error) {
	var steps []func(a *actor.Actor) error
	changed := cmd.Flags().Changed
	if changed("location") {
		v, err := parseVector(c.location)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(a *actor.Actor) error { return a.SetLocation(v) })
	}
	if changed("rotation") {
		r, err := parseRotator(c.rotation)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(a *actor.Actor) error { return a.SetRotation(r) })
	}
	if changed("rotation-rate") {
		r, err := parseRotator(c.rotationRate)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(a *actor.Actor) error { return a.SetRotationRate(r) })
	}
	if changed("scale") {
		s := float32(c.scale)
		steps = append(steps, func(a *actor.Actor) error { return a.SetDrawScale(s) })
	}
	if changed("scale3d") {
		v, err := parseVector(c.scale3D)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(a *actor.Actor) error { return a.SetDrawScale3D(v) })
	}
	if changed("zone") {
		states := make([]int32, len(c.zone))
		for i, s := range c.zone {
			states[i] = int32(s)
		}
		steps = append(steps, func(a *actor.Actor) error {
			if err := a.SetZoneRenderState(states); err != nil {
				return err
			}
			if a.Stale() {
				return a.Rescan()
			}
			return nil
		})
	}
	setMesh := changed("mesh")
	if len(steps) == 0 && !setMesh {
		return nil, fmt.Errorf("no changes given")
	}
	mesh := c.mesh
	return func(e *edit.Editor, s *store.Session) error {
		var ref int32
		if setMesh {
			var err error
			if ref, err = edit.MeshReference(s, mesh); err != nil {
				return err
			}
		}
		return edit.UpdateActor(name, func(a *actor.Actor) error {
			if setMesh {
				if err := a.SetStaticMesh(ref); err != nil {
					return err
				}
			}
			for _, step := range steps {
				if err := step(a); err != nil {
					return err
				}
			}
			return nil
		})(e, s)
	}, nil
}

func (a *app) actorSetCommand() *cobra.Command {
	var c actorChanges
	cmd := &cobra.Command{
		Use:   "set <EXPORT>",
		Short: "Change the placement fields of an actor",
		Long: `Changes the placement fields of an actor in one edit. Location writes every
location field present in the actor, and rotation every rotation field. A
field that the actor does not have is an error.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			fn, err := c.edit(cmd, args[0])
			if err != nil {
				return err
			}
			return a.editor.Do("set "+args[0], fn)
		}),
	}
	cmd.Flags().StringVar(&c.location, "location", "", "Location as X,Y,Z")
	cmd.Flags().StringVar(&c.rotation, "rotation", "", "Rotation as Pitch,Yaw,Roll")
	cmd.Flags().StringVar(&c.rotationRate, "rotation-rate", "", "Rotation rate as Pitch,Yaw,Roll")
	cmd.Flags().Float64Var(&c.scale, "scale", 1, "Uniform draw scale")
	cmd.Flags().StringVar(&c.scale3D, "scale3d", "", "Draw scale per axis as X,Y,Z")
	cmd.Flags().StringVar(&c.mesh, "mesh", "", "Full name of the static mesh, such as Package.Group.Mesh")
	cmd.Flags().IntSliceVar(&c.zone, "zone", nil, "Zone render states")
	return cmd
}

func (a *app) actorNearCommand() *cobra.Command {
	var class string
	var radius float64
	cmd := &cobra.Command{
		Use:   "near <X,Y,Z>",
		Short: "List actors near a point, nearest first",
		Long: `Lists actors within a radius of a point. A coordinate that is empty or "*"
is ignored when measuring, so "10,20,*" measures in the horizontal plane.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			x, y, z, err := parsePoint(args[0])
			if err != nil {
				return err
			}
			pkg, err := a.store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			list, w := actor.Near(pkg, class, x, y, z, radius)
			warn(cmd, w)
			for _, p := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.2f\n", p.Export.ObjectName(), formatVector(p.Location), p.Range)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&class, "class", defaultActorClass, "Full class name of the actors; empty for any")
	cmd.Flags().Float64Var(&radius, "radius", -1, "Maximum range; negative for any")
	return cmd
}

func (a *app) actorAddCommand() *cobra.Command {
	var opts edit.AddOptions
	var location string
	cmd := &cobra.Command{
		Use:   "add <MESH>",
		Short: "Place a new static mesh actor in the level",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			opts.Mesh = args[0]
			if location != "" {
				v, err := parseVector(location)
				if err != nil {
					return err
				}
				opts.Location = v
			}
			var name string
			if err := a.editor.Do("add", edit.AddActor(opts, &name)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.Class, "class", defaultActorClass, "Full class name of the actor")
	cmd.Flags().StringVar(&location, "location", "", "Location as X,Y,Z")
	cmd.Flags().BoolVar(&opts.Rotating, "rotating", false, "Add the properties of a rotating actor")
	cmd.Flags().BoolVar(&opts.ZoneRenderState, "zone-render-state", false, "Add a zone render state")
	return cmd
}

func (a *app) actorCopyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <EXPORT>",
		Short: "Duplicate an actor and add the copy to the level",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			var name string
			if err := a.editor.Do("copy "+args[0], edit.CopyActor(args[0], &name)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		}),
	}
}

func (a *app) actorMapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "map",
		Short: "Display the map coordinates of the terrain",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			pkg, err := a.store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			terrains := pkg.ExportsOfClass(actor.TerrainInfoClass)
			if len(terrains) == 0 {
				return fmt.Errorf("%s: %w", actor.TerrainInfoClass, edit.ErrNotFound)
			}
			for _, e := range terrains {
				start, err := props.Start(e)
				if err != nil {
					return err
				}
				x, y, err := actor.MapCoords(e.Raw, start, pkg)
				if err != nil {
					return fmt.Errorf("%s: %w", e.ObjectName(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tMapX=%d\tMapY=%d\tID=%d\n", e.ObjectName(), x, y, actor.MapID(x, y))
			}
			return nil
		}),
	}
}
