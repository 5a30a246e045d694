package actor

import (
	"sort"
	"strings"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/errors"
)

// Placement is the location of a placed actor.
type Placement struct {
	Export   *upkedit.ExportEntry
	Location Vector
	Range    float64
}

// Near returns the actors of the given full class name that lie within radius
// of a point, nearest first. An empty class matches every export. A negative
// radius matches every actor. See Range for the meaning of nil coordinates.
//
// Exports that cannot be scanned are skipped and reported in warn.
func Near(pkg *upkedit.Package, class string, x, y, z *float64, radius float64) (list []Placement, warn error) {
	var warns errors.Errors
	for _, e := range pkg.Exports {
		if class != "" && !strings.EqualFold(e.FullClassName(), class) {
			continue
		}
		a, err := Open(e, pkg)
		if err != nil {
			warns = warns.Append(err)
			continue
		}
		loc, ok, _ := a.Location()
		if !ok {
			continue
		}
		r := Range(loc, x, y, z)
		if radius >= 0 && r > radius {
			continue
		}
		list = append(list, Placement{Export: e, Location: loc, Range: r})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Range < list[j].Range
	})
	return list, warns.Return()
}
