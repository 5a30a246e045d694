package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/props"
)

type PropLen struct {
	Class    string
	Property string
	Tag      string
	Length   int
}

func (p PropLen) String() string {
	return fmt.Sprintf("%s.%s:%s(%d)", p.Class, p.Property, p.Tag, p.Length)
}

type PropLenCount map[PropLen]int

func (p PropLenCount) MarshalJSON() ([]byte, error) {
	list := []PropLen{}
	for k := range p {
		list = append(list, k)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Length != list[j].Length {
			return list[i].Length > list[j].Length
		}
		return list[i].String() < list[j].String()
	})
	if len(list) > 20 {
		list = list[:20]
	}
	return json.Marshal(list)
}

type Stats struct {
	// Number of entries per table.
	NameCount   int
	ImportCount int
	ExportCount int

	// Number of property records overall.
	PropertyCount int

	// Number of exports per class.
	ClassCount map[string]int

	// Number of records per tag.
	TagCount map[string]int

	// Number of struct records per structure.
	StructCount map[string]int `json:",omitempty"`

	// Exports whose properties could not be scanned.
	Unreadable []string `json:",omitempty"`

	LargestProperties PropLenCount `json:",omitempty"`
}

// Fill gathers stats for pkg. Exports that cannot be scanned are listed in
// Unreadable, and returned as warnings.
func (s *Stats) Fill(pkg *upkedit.Package) (warn error) {
	s.NameCount = len(pkg.Names)
	s.ImportCount = len(pkg.Imports)
	s.ExportCount = len(pkg.Exports)
	s.PropertyCount = 0
	s.ClassCount = map[string]int{}
	s.TagCount = map[string]int{}
	s.StructCount = map[string]int{}
	s.Unreadable = nil
	s.LargestProperties = PropLenCount{}

	var warns errors.Errors
	for _, e := range pkg.Exports {
		class := e.FullClassName()
		s.ClassCount[class]++
		start, err := props.Start(e)
		if err == nil {
			_, err = props.Scan(e.Raw, start, pkg, func(r props.Record) error {
				s.PropertyCount++
				s.TagCount[r.Header.Tag.String()]++
				if r.Header.Tag == props.TagStruct {
					s.StructCount[r.StructName]++
				}
				s.LargestProperties[PropLen{
					Class:    class,
					Property: r.Name,
					Tag:      r.Header.Tag.String(),
					Length:   len(r.Payload),
				}]++
				return nil
			})
		}
		if err != nil {
			s.Unreadable = append(s.Unreadable, e.ObjectName())
			warns = warns.Append(fmt.Errorf("%s: %w", e.ObjectName(), err))
		}
	}
	return warns.Return()
}

func (a *app) statCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Display statistics for the package in the store",
		Long: `Writes statistics for the package in the store in JSON format. Exports
whose properties cannot be scanned are reported as warnings.`,
		Args: cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			pkg, err := a.store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			var stats Stats
			warn(cmd, stats.Fill(pkg))

			je := json.NewEncoder(cmd.OutOrStdout())
			je.SetEscapeHTML(false)
			je.SetIndent("", "\t")
			if err := je.Encode(stats); err != nil {
				return fmt.Errorf("write error: %w", err)
			}
			return nil
		}),
	}
}
