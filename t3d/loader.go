package t3d

import (
	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/props"
)

// Materializer is a Loader that decodes the raw data of exports without a
// class schema.
//
// Since no property flags are stored in the data, an object reference to an
// export whose outer is the loaded object is flagged as exporting its object,
// so that owned subobjects are written as nested blocks.
type Materializer struct {
	Package *upkedit.Package

	// Warn, if not nil, receives warnings produced while decoding.
	Warn func(e *upkedit.ExportEntry, warn error)
}

func (m Materializer) Load(e *upkedit.ExportEntry) (*upkedit.Object, error) {
	start, err := props.Start(e)
	if err != nil {
		return nil, err
	}
	records, _, err := props.Collect(e.Raw, start, m.Package)
	if err != nil {
		return nil, err
	}
	list, warn, err := props.Materialize(records, m.Package)
	if warn != nil && m.Warn != nil {
		m.Warn(e, warn)
	}
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		m.flagOwned(e, p)
	}
	return &upkedit.Object{Entry: e, Properties: list}, nil
}

func (m Materializer) flagOwned(owner *upkedit.ExportEntry, p upkedit.Property) {
	for _, v := range p.Values {
		switch v := v.(type) {
		case upkedit.ValueObject:
			if v > 0 && int(v) <= len(m.Package.Exports) && m.Package.Exports[v-1].Outer == owner.Reference() {
				p.Template.Flags |= upkedit.FlagExportObject
			}
		case upkedit.ValueStruct:
			for _, member := range v {
				m.flagOwned(owner, member)
			}
		}
	}
}
