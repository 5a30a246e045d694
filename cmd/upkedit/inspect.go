package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/edit"
	"github.com/upkedit/upkedit/mesh"
	"github.com/upkedit/upkedit/props"
	"github.com/upkedit/upkedit/t3d"
)

// findExport returns the export of pkg with the given name.
func findExport(pkg *upkedit.Package, name string) (*upkedit.ExportEntry, error) {
	e := pkg.ExportByName(name)
	if e == nil {
		return nil, fmt.Errorf("%s: %w", name, edit.ErrNotFound)
	}
	return e, nil
}

// snapshotExport reads the package from the store and finds an export in it.
func (a *app) snapshotExport(cmd *cobra.Command, name string) (*upkedit.Package, *upkedit.ExportEntry, error) {
	pkg, err := a.store.Snapshot(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	e, err := findExport(pkg, name)
	if err != nil {
		return nil, nil, err
	}
	return pkg, e, nil
}

func (a *app) dumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <EXPORT>",
		Short: "Display the raw property records of an export",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			pkg, e, err := a.snapshotExport(cmd, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%d bytes)\n", e, len(e.Raw))
			start, err := props.Start(e)
			if err != nil {
				return err
			}
			end, err := props.Dump(w, e.Raw, start, pkg)
			fmt.Fprintln(w)
			if err != nil {
				return err
			}
			if end < len(e.Raw) {
				fmt.Fprintf(w, "%d trailing bytes\n", len(e.Raw)-end)
			}
			return nil
		}),
	}
}

// writeDecompiled renders the named export as T3D text to w.
func writeDecompiled(w io.Writer, pkg *upkedit.Package, e *upkedit.ExportEntry, onWarn func(error)) error {
	m := t3d.Materializer{
		Package: pkg,
		Warn: func(e *upkedit.ExportEntry, warn error) {
			if onWarn != nil {
				onWarn(fmt.Errorf("%s: %w", e.ObjectName(), warn))
			}
		},
	}
	obj, err := m.Load(e)
	if err != nil {
		return err
	}
	d := t3d.Decompiler{Package: pkg, Objects: m}
	text, err := d.Object(obj, 0)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(text)
	bw.WriteString("\r\n")
	return bw.Flush()
}

func (a *app) decompileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decompile <EXPORT>",
		Short: "Render an export as T3D text",
		Long: `Decodes the properties of an export and writes them as T3D text. Subobjects
owned by the export are written as nested blocks.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			pkg, e, err := a.snapshotExport(cmd, args[0])
			if err != nil {
				return err
			}
			return writeDecompiled(cmd.OutOrStdout(), pkg, e, func(w error) { warn(cmd, w) })
		}),
	}
}

func (a *app) meshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mesh <EXPORT>",
		Short: "Display the geometry of a static mesh",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			pkg, e, err := a.snapshotExport(cmd, args[0])
			if err != nil {
				return err
			}
			m, w, err := mesh.Read(e.Raw, pkg)
			warn(cmd, w)
			if m == nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Materials: %d\n", len(m.Materials))
			for i, mat := range m.Materials {
				if mat == nil {
					fmt.Fprintf(out, "\t[%d] None\n", i)
					continue
				}
				fmt.Fprintf(out, "\t[%d] %s'%s'\n", i, mat.ClassName, mat.FullName)
			}
			b := m.BoundingBox
			fmt.Fprintf(out, "BoundingBox: (%g, %g, %g) - (%g, %g, %g)\n", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
			s := m.BoundingSphere
			fmt.Fprintf(out, "BoundingSphere: (%g, %g, %g) r=%g\n", s.Center.X, s.Center.Y, s.Center.Z, s.Radius)
			fmt.Fprintf(out, "Sections: %d\n", len(m.Sections))
			for i, sec := range m.Sections {
				fmt.Fprintf(out, "\t[%d] faces=%d first index=%d vertices=%d-%d\n", i, sec.NumFaces, sec.FirstIndex, sec.FirstVertex, sec.LastVertex)
			}
			fmt.Fprintf(out, "Vertices: %d\n", len(m.VertexStream.Vertices))
			fmt.Fprintf(out, "Colors: %d, %d\n", len(m.ColorStream1.Colors), len(m.ColorStream2.Colors))
			fmt.Fprintf(out, "UV streams: %d\n", len(m.UVStreams))
			fmt.Fprintf(out, "Indices: %d, %d\n", len(m.IndexBuffer1.Indices), len(m.IndexBuffer2.Indices))
			return err
		}),
	}
}
