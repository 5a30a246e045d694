package actor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/props"
)

type Vector struct {
	X, Y, Z float32
}

type Rotator struct {
	Pitch, Yaw, Roll int32
}

// Actor is the data of a placed actor together with the offsets of its known
// properties.
type Actor struct {
	data    []byte
	start   int
	names   props.NameTable
	offsets *Offsets
	stale   bool
}

// New scans the property list starting at offset start of data. The actor
// holds a copy of data.
func New(data []byte, start int, names props.NameTable) (*Actor, error) {
	a := &Actor{
		data:  append([]byte(nil), data...),
		start: start,
		names: names,
	}
	if err := a.Rescan(); err != nil {
		return nil, err
	}
	return a, nil
}

// Open returns the actor of an export, skipping the state frame when the
// export has one.
func Open(e *upkedit.ExportEntry, names props.NameTable) (*Actor, error) {
	start, err := props.Start(e)
	if err != nil {
		return nil, err
	}
	return New(e.Raw, start, names)
}

// Bytes returns the current data of the actor. The slice is valid until the
// next setter call.
func (a *Actor) Bytes() []byte {
	return a.data
}

// Stale returns whether the offsets must be recomputed with Rescan.
func (a *Actor) Stale() bool {
	return a.stale
}

// Offsets returns a copy of the recorded offsets.
func (a *Actor) Offsets() (Offsets, error) {
	if a.stale {
		return Offsets{}, ErrStaleOffsets
	}
	return *a.offsets, nil
}

// Rescan recomputes the offsets from the current data.
func (a *Actor) Rescan() error {
	o, err := Scan(a.data, a.start, a.names)
	if err != nil {
		return err
	}
	a.offsets = o
	a.stale = false
	return nil
}

func (a *Actor) check() error {
	if a.stale {
		return ErrStaleOffsets
	}
	return nil
}

func (a *Actor) payload(f Field) []byte {
	s := a.offsets.Fields[f]
	return a.data[s.Offset:s.End()]
}

func (a *Actor) vector(f Field) Vector {
	b := a.payload(f)
	return Vector{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func (a *Actor) rotator(f Field) Rotator {
	b := a.payload(f)
	return Rotator{
		Pitch: int32(binary.LittleEndian.Uint32(b[0:])),
		Yaw:   int32(binary.LittleEndian.Uint32(b[4:])),
		Roll:  int32(binary.LittleEndian.Uint32(b[8:])),
	}
}

// write overwrites the payload of each present field with p, which has the
// width of the fields.
func (a *Actor) write(p []byte, fields ...Field) error {
	if err := a.check(); err != nil {
		return err
	}
	n := 0
	for _, f := range fields {
		if a.offsets.Present(f) {
			copy(a.payload(f), p)
			n++
		}
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", fields[0], ErrAbsent)
	}
	return nil
}

// first returns the first present field.
func (a *Actor) first(fields ...Field) (Field, bool, error) {
	if err := a.check(); err != nil {
		return 0, false, err
	}
	for _, f := range fields {
		if a.offsets.Present(f) {
			return f, true, nil
		}
	}
	return 0, false, nil
}

// resize replaces the header and payload of a present field with a header
// fitting p followed by p. The fields after it are shifted by the change in
// length.
func (a *Actor) resize(f Field, p []byte) {
	s := a.offsets.Fields[f]
	h := s.Header
	h.Size = props.ClassFor(len(p))
	region := props.AppendHeader(nil, h, s.StructRef, len(p), s.ArrayIndex)
	headerLen := len(region)
	region = append(region, p...)

	end := s.End()
	staged := make([]byte, 0, len(a.data)-(end-s.HeaderOffset)+len(region))
	staged = append(staged, a.data[:s.HeaderOffset]...)
	staged = append(staged, region...)
	staged = append(staged, a.data[end:]...)
	delta := len(staged) - len(a.data)
	a.data = staged

	a.offsets.shift(end, delta)
	a.offsets.Fields[f] = Span{
		HeaderOffset: s.HeaderOffset,
		Offset:       s.HeaderOffset + headerLen,
		Width:        len(p),
		Header:       h,
		StructRef:    s.StructRef,
		ArrayIndex:   s.ArrayIndex,
	}
}

////////////////////////////////////////////////////////////////

// StaticMesh returns the reference to the mesh of the actor.
func (a *Actor) StaticMesh() (ref int32, ok bool, err error) {
	if err := a.check(); err != nil {
		return 0, false, err
	}
	if !a.offsets.Present(StaticMesh) {
		return 0, false, nil
	}
	ref, _, err = compact.Decode(a.payload(StaticMesh))
	return ref, err == nil, err
}

// SetStaticMesh sets the reference to the mesh of the actor. When the encoded
// reference has a different width, the property is rebuilt.
func (a *Actor) SetStaticMesh(ref int32) error {
	if err := a.check(); err != nil {
		return err
	}
	if !a.offsets.Present(StaticMesh) {
		return fmt.Errorf("%s: %w", StaticMesh, ErrAbsent)
	}
	p := compact.Bytes(ref)
	if len(p) == a.offsets.Fields[StaticMesh].Width {
		copy(a.payload(StaticMesh), p)
		return nil
	}
	a.resize(StaticMesh, p)
	return nil
}

// Location returns the location of the actor, falling back to ColLocation.
func (a *Actor) Location() (v Vector, ok bool, err error) {
	f, ok, err := a.first(Location, ColLocation)
	if !ok {
		return v, false, err
	}
	return a.vector(f), true, nil
}

// SetLocation writes v to each of Location, ColLocation, and BasePos that is
// present.
func (a *Actor) SetLocation(v Vector) error {
	return a.write(props.AppendFloats(nil, v.X, v.Y, v.Z), Location, ColLocation, BasePos)
}

// Rotation returns the rotation of the actor, falling back to
// SwayRotationOrig.
func (a *Actor) Rotation() (r Rotator, ok bool, err error) {
	f, ok, err := a.first(Rotation, SwayRotationOrig)
	if !ok {
		return r, false, err
	}
	return a.rotator(f), true, nil
}

// SetRotation writes r to each of Rotation, SwayRotationOrig, and BaseRot
// that is present.
func (a *Actor) SetRotation(r Rotator) error {
	return a.write(appendRotator(nil, r), Rotation, SwayRotationOrig, BaseRot)
}

func (a *Actor) RotationRate() (r Rotator, ok bool, err error) {
	f, ok, err := a.first(RotationRate)
	if !ok {
		return r, false, err
	}
	return a.rotator(f), true, nil
}

func (a *Actor) SetRotationRate(r Rotator) error {
	return a.write(appendRotator(nil, r), RotationRate)
}

func (a *Actor) DrawScale() (s float32, ok bool, err error) {
	f, ok, err := a.first(DrawScale)
	if !ok {
		return 0, false, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(a.payload(f))), true, nil
}

func (a *Actor) SetDrawScale(s float32) error {
	return a.write(props.AppendFloats(nil, s), DrawScale)
}

func (a *Actor) DrawScale3D() (v Vector, ok bool, err error) {
	f, ok, err := a.first(DrawScale3D)
	if !ok {
		return v, false, err
	}
	return a.vector(f), true, nil
}

func (a *Actor) SetDrawScale3D(v Vector) error {
	return a.write(props.AppendFloats(nil, v.X, v.Y, v.Z), DrawScale3D)
}

// ZoneRenderState returns the zone render states of the actor.
func (a *Actor) ZoneRenderState() (states []int32, ok bool, err error) {
	f, ok, err := a.first(ZoneRenderState)
	if !ok {
		return nil, false, err
	}
	states, err = zoneStates(a.payload(f))
	return states, err == nil, err
}

// SetZoneRenderState replaces the zone render states of the actor. If the
// number of states changes, the property is rebuilt and the actor becomes
// stale.
func (a *Actor) SetZoneRenderState(states []int32) error {
	if err := a.check(); err != nil {
		return err
	}
	if !a.offsets.Present(ZoneRenderState) {
		return fmt.Errorf("%s: %w", ZoneRenderState, ErrAbsent)
	}
	p := compact.Bytes(int32(len(states)))
	for _, s := range states {
		p = binary.LittleEndian.AppendUint32(p, uint32(s))
	}
	if len(states) == a.offsets.ZoneRenderStateCount && len(p) == a.offsets.Fields[ZoneRenderState].Width {
		copy(a.payload(ZoneRenderState), p)
		return nil
	}
	a.resize(ZoneRenderState, p)
	a.stale = true
	return nil
}

func appendRotator(b []byte, r Rotator) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(r.Pitch))
	b = binary.LittleEndian.AppendUint32(b, uint32(r.Yaw))
	return binary.LittleEndian.AppendUint32(b, uint32(r.Roll))
}

// zoneStates decodes a zone render state payload: a compact count followed by
// that many integers.
func zoneStates(b []byte) ([]int32, error) {
	count, n, err := compact.Decode(b)
	if err != nil {
		return nil, err
	}
	if count < 0 || int(count)*4 != len(b)-n {
		return nil, fmt.Errorf("%d zone render states in %d bytes: %w", count, len(b)-n, ErrLayout)
	}
	states := make([]int32, count)
	for i := range states {
		states[i] = int32(binary.LittleEndian.Uint32(b[n+i*4:]))
	}
	return states, nil
}

// Range returns the distance from v to a point. Nil coordinates are ignored,
// measuring the distance to a line or plane instead.
func Range(v Vector, x, y, z *float64) float64 {
	var s float64
	if x != nil {
		s += math.Pow(float64(v.X)-*x, 2)
	}
	if y != nil {
		s += math.Pow(float64(v.Y)-*y, 2)
	}
	if z != nil {
		s += math.Pow(float64(v.Z)-*z, 2)
	}
	return math.Sqrt(s)
}
