package frame

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
	"github.com/rigado/dot15d4/sliceops"
)

const panIDLen = 2

// Layout says which addressing fields are present. The fields always
// appear in this order: dst PAN ID, dst address, src PAN ID, src address.
type Layout struct {
	DstPanID bool
	Dst      dot15d4.AddressingMode
	SrcPanID bool
	Src      dot15d4.AddressingMode
}

// Len returns the total size of the addressing fields in octets.
func (l Layout) Len() int {
	return l.srcAddrOffset() + l.Src.Size()
}

func (l Layout) dstAddrOffset() int {
	if l.DstPanID {
		return panIDLen
	}
	return 0
}

func (l Layout) srcPanIDOffset() int {
	return l.dstAddrOffset() + l.Dst.Size()
}

func (l Layout) srcAddrOffset() int {
	off := l.srcPanIDOffset()
	if l.SrcPanID {
		off += panIDLen
	}
	return off
}

type layoutKey struct {
	dst         dot15d4.AddressingMode
	src         dot15d4.AddressingMode
	compression bool
}

type layoutRow struct {
	key    layoutKey
	layout Layout
}

const (
	absent   = dot15d4.AddressingModeAbsent
	short    = dot15d4.AddressingModeShort
	extended = dot15d4.AddressingModeExtended
)

var presentModes = []dot15d4.AddressingMode{short, extended}

// IEEE 802.15.4-2003/2006: the PAN ID compression bit only matters when both
// addresses are present.
func legacyRows() []layoutRow {
	var rows []layoutRow
	for _, c := range []bool{false, true} {
		for _, src := range []dot15d4.AddressingMode{absent, short, extended} {
			rows = append(rows, layoutRow{
				layoutKey{absent, src, c},
				Layout{false, absent, true, src},
			})
		}
		for _, dst := range presentModes {
			rows = append(rows, layoutRow{
				layoutKey{dst, absent, c},
				Layout{true, dst, false, absent},
			})
			for _, src := range presentModes {
				rows = append(rows, layoutRow{
					layoutKey{dst, src, c},
					Layout{true, dst, !c, src},
				})
			}
		}
	}
	return rows
}

// IEEE 802.15.4-2020 Table 9-14.
func rows2020() []layoutRow {
	rows := []layoutRow{
		{layoutKey{absent, absent, false}, Layout{false, absent, false, absent}},
		{layoutKey{absent, absent, true}, Layout{true, absent, false, absent}},

		{layoutKey{extended, extended, false}, Layout{true, extended, false, extended}},
		{layoutKey{extended, extended, true}, Layout{false, extended, false, extended}},

		{layoutKey{short, short, false}, Layout{true, short, true, short}},
		{layoutKey{short, extended, false}, Layout{true, short, true, extended}},
		{layoutKey{extended, short, false}, Layout{true, extended, true, short}},

		{layoutKey{short, extended, true}, Layout{true, short, false, extended}},
		{layoutKey{extended, short, true}, Layout{true, extended, false, short}},
		{layoutKey{short, short, true}, Layout{true, short, false, short}},
	}

	for _, m := range presentModes {
		rows = append(rows,
			layoutRow{layoutKey{m, absent, false}, Layout{true, m, false, absent}},
			layoutRow{layoutKey{m, absent, true}, Layout{false, m, false, absent}},
			layoutRow{layoutKey{absent, m, false}, Layout{false, absent, true, m}},
			layoutRow{layoutKey{absent, m, true}, Layout{false, absent, true, m}},
		)
	}
	return rows
}

func buildTable(rows []layoutRow) map[layoutKey]Layout {
	t := make(map[layoutKey]Layout, len(rows))
	for _, r := range rows {
		if _, dup := t[r.key]; dup {
			panic(fmt.Sprintf("duplicate addressing layout row %+v", r.key))
		}
		t[r.key] = r.layout
	}
	return t
}

var (
	legacyLayouts = buildTable(legacyRows())
	layouts2020   = buildTable(rows2020())
)

// ResolveLayout returns the addressing layout for the given Frame Control
// values. ok is false when the combination is not defined by the standard.
func ResolveLayout(v FrameVersion, dst, src dot15d4.AddressingMode, panIDCompression bool) (Layout, bool) {
	var table map[layoutKey]Layout
	switch v {
	case FrameVersion2003, FrameVersion2006:
		table = legacyLayouts
	case FrameVersion2020:
		table = layouts2020
	default:
		return Layout{}, false
	}

	l, ok := table[layoutKey{dst, src, panIDCompression}]
	return l, ok
}

// LayoutOf resolves the addressing layout from a Frame Control view.
func LayoutOf(fc FrameControl) (Layout, bool) {
	return ResolveLayout(fc.FrameVersion(), fc.DstAddressingMode(), fc.SrcAddressingMode(), fc.PanIDCompression())
}

// AddressingFields is a reader/writer over the Addressing Fields region,
// starting right after the sequence number. Every accessor resolves the
// layout from the Frame Control view it is given.
type AddressingFields struct {
	b []byte
}

func NewAddressingFields(buf []byte) AddressingFields {
	return AddressingFields{b: buf}
}

// RawData returns the buffer the view was created with.
func (a AddressingFields) RawData() []byte { return a.b }

// Len returns the size of the addressing fields, or false if the layout is
// unrepresentable.
func (a AddressingFields) Len(fc FrameControl) (int, bool) {
	l, ok := LayoutOf(fc)
	if !ok {
		return 0, false
	}
	return l.Len(), true
}

// Validate checks the layout resolves and the buffer is large enough to hold it.
func (a AddressingFields) Validate(fc FrameControl) error {
	l, ok := LayoutOf(fc)
	if !ok {
		return errors.Wrapf(dot15d4.ErrUnrepresentable, "version %s, dst %s, src %s, compression %v",
			fc.FrameVersion(), fc.DstAddressingMode(), fc.SrcAddressingMode(), fc.PanIDCompression())
	}
	if l.Len() > len(a.b) {
		return errors.Wrapf(dot15d4.ErrTruncated, "addressing fields: want %d bytes, have %d", l.Len(), len(a.b))
	}
	return nil
}

// DstPanID returns the destination PAN ID if present.
func (a AddressingFields) DstPanID(fc FrameControl) (uint16, bool) {
	l, ok := LayoutOf(fc)
	if !ok || !l.DstPanID {
		return 0, false
	}
	return binary.LittleEndian.Uint16(a.b[:panIDLen]), true
}

// SrcPanID returns the source PAN ID if present.
func (a AddressingFields) SrcPanID(fc FrameControl) (uint16, bool) {
	l, ok := LayoutOf(fc)
	if !ok || !l.SrcPanID {
		return 0, false
	}
	off := l.srcPanIDOffset()
	return binary.LittleEndian.Uint16(a.b[off : off+panIDLen]), true
}

// DstAddress returns the destination address. ok is false only when the
// layout is unrepresentable; an elided address is returned as AbsentAddress.
func (a AddressingFields) DstAddress(fc FrameControl) (dot15d4.Address, bool) {
	l, ok := LayoutOf(fc)
	if !ok {
		return dot15d4.AbsentAddress, false
	}
	return a.readAddress(l.dstAddrOffset(), l.Dst), true
}

// SrcAddress returns the source address; see DstAddress.
func (a AddressingFields) SrcAddress(fc FrameControl) (dot15d4.Address, bool) {
	l, ok := LayoutOf(fc)
	if !ok {
		return dot15d4.AbsentAddress, false
	}
	return a.readAddress(l.srcAddrOffset(), l.Src), true
}

// Addresses are carried least significant octet first.
func (a AddressingFields) readAddress(off int, m dot15d4.AddressingMode) dot15d4.Address {
	n := m.Size()
	raw := make([]byte, n)
	sliceops.ReverseInto(raw, a.b[off:off+n])
	return dot15d4.AddressFromBytes(raw)
}

// WriteFields serializes r in field order. r is trusted to match the Frame
// Control field of the same frame; only a buffer overrun is reported.
func (a AddressingFields) WriteFields(r AddressingFieldsRepr) error {
	if need := r.BufferLen(); need > len(a.b) {
		return errors.Wrapf(dot15d4.ErrTruncated, "addressing fields: want %d bytes, have %d", need, len(a.b))
	}

	off := 0
	if r.DstPanID != nil {
		binary.LittleEndian.PutUint16(a.b[off:], *r.DstPanID)
		off += panIDLen
	}

	off += sliceops.ReverseInto(a.b[off:], r.DstAddress.Bytes())

	if r.SrcPanID != nil {
		binary.LittleEndian.PutUint16(a.b[off:], *r.SrcPanID)
		off += panIDLen
	}

	sliceops.ReverseInto(a.b[off:], r.SrcAddress.Bytes())
	return nil
}

// Format renders the fields for debugging.
func (a AddressingFields) Format(fc FrameControl) string {
	r, err := ParseAddressingFields(a, fc)
	if err != nil {
		return fmt.Sprintf("Addressing Fields: %v", err)
	}
	return r.String()
}

// AddressingFieldsRepr is an owned snapshot of the Addressing Fields.
// Nil PAN IDs and absent addresses are elided.
type AddressingFieldsRepr struct {
	DstPanID   *uint16         `json:"dstPanId,omitempty"`
	DstAddress dot15d4.Address `json:"dstAddress"`
	SrcPanID   *uint16         `json:"srcPanId,omitempty"`
	SrcAddress dot15d4.Address `json:"srcAddress"`
}

// PanID returns a pointer to id, for building an AddressingFieldsRepr.
func PanID(id uint16) *uint16 {
	return &id
}

// ParseAddressingFields resolves the layout once and snapshots every field.
// In strict use the caller guarantees the buffer is long enough; call
// Validate first for untrusted input.
func ParseAddressingFields(a AddressingFields, fc FrameControl) (AddressingFieldsRepr, error) {
	l, ok := LayoutOf(fc)
	if !ok {
		return AddressingFieldsRepr{}, errors.Wrapf(dot15d4.ErrUnrepresentable, "version %s, dst %s, src %s, compression %v",
			fc.FrameVersion(), fc.DstAddressingMode(), fc.SrcAddressingMode(), fc.PanIDCompression())
	}

	var r AddressingFieldsRepr
	if id, ok := a.DstPanID(fc); ok {
		r.DstPanID = PanID(id)
	}
	if id, ok := a.SrcPanID(fc); ok {
		r.SrcPanID = PanID(id)
	}
	r.DstAddress = a.readAddress(l.dstAddrOffset(), l.Dst)
	r.SrcAddress = a.readAddress(l.srcAddrOffset(), l.Src)
	return r, nil
}

// BufferLen returns the number of octets WriteFields needs.
func (r AddressingFieldsRepr) BufferLen() int {
	n := r.DstAddress.Len() + r.SrcAddress.Len()
	if r.DstPanID != nil {
		n += panIDLen
	}
	if r.SrcPanID != nil {
		n += panIDLen
	}
	return n
}

func (r AddressingFieldsRepr) String() string {
	lines := []string{"Addressing Fields"}
	if r.DstPanID != nil {
		lines = append(lines, fmt.Sprintf("  dst pan id: %x", *r.DstPanID))
	}
	if !r.DstAddress.IsAbsent() {
		lines = append(lines, fmt.Sprintf("  dst address: %s", r.DstAddress))
	}
	if r.SrcPanID != nil {
		lines = append(lines, fmt.Sprintf("  src pan id: %x", *r.SrcPanID))
	}
	if !r.SrcAddress.IsAbsent() {
		lines = append(lines, fmt.Sprintf("  src address: %s", r.SrcAddress))
	}
	return strings.Join(lines, "\n")
}
