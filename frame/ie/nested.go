// Package ie reads and writes IEEE 802.15.4 nested information elements and
// the TSCH payloads they carry.
//
// Short format:
//
//	+--------+--------+--------+---------------------------+
//	| Length | Sub-ID | Type=0 | Content (0-127 octets)... |
//	+--------+--------+--------+---------------------------+
//	 bits 0-6  8-13     15
//
// Long format:
//
//	+--------+--------+--------+----------------------------+
//	| Length | Sub-ID | Type=1 | Content (0-1023 octets)... |
//	+--------+--------+--------+----------------------------+
//	 bits 0-9  11-14    15
package ie

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
)

const (
	headerLen = 2

	maxShortContent = 0x7f
	maxLongContent  = 0x3ff

	typeBit = 1 << 15
)

// ShortSubID is a short-format sub-ID.
type ShortSubID uint8

const (
	TschSynchronization          ShortSubID = 0x1a
	TschSlotframeAndLink         ShortSubID = 0x1b
	TschTimeslot                 ShortSubID = 0x1c
	HoppingTiming                ShortSubID = 0x1d
	EnhancedBeaconFilter         ShortSubID = 0x1e
	MacMetrics                   ShortSubID = 0x1f
	AllMacMetrics                ShortSubID = 0x20
	CoexistenceSpecification     ShortSubID = 0x21
	SunDeviceCapabilities        ShortSubID = 0x22
	SunFskGenericPhy             ShortSubID = 0x23
	ModeSwitchParameter          ShortSubID = 0x24
	PhyParameterChange           ShortSubID = 0x25
	OQpskPhyMode                 ShortSubID = 0x26
	PcaAllocation                ShortSubID = 0x27
	LecimDsssOperatingMode       ShortSubID = 0x28
	LecimFskOperatingMode        ShortSubID = 0x29
	TvwsPhyOperatingMode         ShortSubID = 0x2b
	TvwsDeviceCapabilities       ShortSubID = 0x2c
	TvwsDeviceCategory           ShortSubID = 0x2d
	TvwsDeviceIdentification     ShortSubID = 0x2e
	TvwsDeviceLocation           ShortSubID = 0x2f
	TvwsChannelInformationQuery  ShortSubID = 0x30
	TvwsChannelInformationSource ShortSubID = 0x31
	Ctm                          ShortSubID = 0x32
	Timestamp                    ShortSubID = 0x33
	TimestampDifference          ShortSubID = 0x34
	TmctpSpecification           ShortSubID = 0x35
	RccPhyOperatingMode          ShortSubID = 0x36
	LinkMargin                   ShortSubID = 0x37
	RsGfskDeviceCapabilities     ShortSubID = 0x38
	MultiPhy                     ShortSubID = 0x39

	// Codes above 0x3f are named but cannot be carried in the 6-bit field.
	VendorSpecific ShortSubID = 0x40
	Srm            ShortSubID = 0x46

	// ShortSubIDUnknown is outside the 6-bit code space.
	ShortSubIDUnknown ShortSubID = 0xff
)

var shortSubIDNames = map[ShortSubID]string{
	TschSynchronization:          "TSCH Synchronization",
	TschSlotframeAndLink:         "TSCH Slotframe and Link",
	TschTimeslot:                 "TSCH Timeslot",
	HoppingTiming:                "HoppingTiming",
	EnhancedBeaconFilter:         "EnhancedBeaconFilter",
	MacMetrics:                   "MacMetrics",
	AllMacMetrics:                "AllMacMetrics",
	CoexistenceSpecification:     "CoexistenceSpecification",
	SunDeviceCapabilities:        "SunDeviceCapabilities",
	SunFskGenericPhy:             "SunFskGenericPhy",
	ModeSwitchParameter:          "ModeSwitchParameter",
	PhyParameterChange:           "PhyParameterChange",
	OQpskPhyMode:                 "OQpskPhyMode",
	PcaAllocation:                "PcaAllocation",
	LecimDsssOperatingMode:       "LecimDsssOperatingMode",
	LecimFskOperatingMode:        "LecimFskOperatingMode",
	TvwsPhyOperatingMode:         "TvwsPhyOperatingMode",
	TvwsDeviceCapabilities:       "TvwsDeviceCapabilities",
	TvwsDeviceCategory:           "TvwsDeviceCategory",
	TvwsDeviceIdentification:     "TvwsDeviceIdentification",
	TvwsDeviceLocation:           "TvwsDeviceLocation",
	TvwsChannelInformationQuery:  "TvwsChannelInformationQuery",
	TvwsChannelInformationSource: "TvwsChannelInformationSource",
	Ctm:                          "Ctm",
	Timestamp:                    "Timestamp",
	TimestampDifference:          "TimestampDifference",
	TmctpSpecification:           "TmctpSpecification",
	RccPhyOperatingMode:          "RccPhyOperatingMode",
	LinkMargin:                   "LinkMargin",
	RsGfskDeviceCapabilities:     "RsGfskDeviceCapabilities",
	MultiPhy:                     "MultiPhy",
	VendorSpecific:               "VendorSpecific",
	Srm:                          "Srm",
}

// ShortSubIDFromCode maps a sub-ID code to a ShortSubID.
func ShortSubIDFromCode(code uint8) ShortSubID {
	id := ShortSubID(code)
	if _, ok := shortSubIDNames[id]; ok {
		return id
	}
	return ShortSubIDUnknown
}

func (s ShortSubID) String() string {
	if n, ok := shortSubIDNames[s]; ok {
		return n
	}
	return "Unknown"
}

// LongSubID is a 4-bit long-format sub-ID.
type LongSubID uint8

const (
	VendorSpecificNested LongSubID = 0x08
	ChannelHopping       LongSubID = 0x09

	// LongSubIDUnknown is outside the 4-bit code space.
	LongSubIDUnknown LongSubID = 0xff
)

// LongSubIDFromCode maps a 4-bit code to a LongSubID.
func LongSubIDFromCode(code uint8) LongSubID {
	switch id := LongSubID(code & 0x0f); id {
	case VendorSpecificNested, ChannelHopping:
		return id
	}
	return LongSubIDUnknown
}

func (l LongSubID) String() string {
	switch l {
	case VendorSpecificNested:
		return "VendorSpecificNested"
	case ChannelHopping:
		return "Channel Hopping"
	}
	return "Unknown"
}

// SubID identifies a nested element: a short or a long sub-ID. The two code
// spaces are disjoint.
type SubID struct {
	long bool
	code uint8
}

// ShortID wraps a short sub-ID.
func ShortID(s ShortSubID) SubID { return SubID{code: uint8(s)} }

// LongID wraps a long sub-ID.
func LongID(l LongSubID) SubID { return SubID{long: true, code: uint8(l)} }

func (s SubID) IsLong() bool { return s.long }

// Short returns the short sub-ID, or ShortSubIDUnknown for a long one.
func (s SubID) Short() ShortSubID {
	if s.long {
		return ShortSubIDUnknown
	}
	return ShortSubID(s.code)
}

// Long returns the long sub-ID, or LongSubIDUnknown for a short one.
func (s SubID) Long() LongSubID {
	if !s.long {
		return LongSubIDUnknown
	}
	return LongSubID(s.code)
}

func (s SubID) String() string {
	if s.long {
		return s.Long().String()
	}
	return s.Short().String()
}

// Nested is a reader over one nested information element, header included.
type Nested struct {
	b []byte
}

// NewNested returns a view over b, which starts with the 2-byte header.
func NewNested(b []byte) Nested {
	return Nested{b: b}
}

// RawData returns the buffer the view was created with.
func (n Nested) RawData() []byte { return n.b }

func (n Nested) header() uint16 {
	return binary.LittleEndian.Uint16(n.b[:headerLen])
}

// IsLong reports whether the element uses the long format.
func (n Nested) IsLong() bool {
	return n.header()&typeBit != 0
}

// IsShort reports whether the element uses the short format.
func (n Nested) IsShort() bool {
	return !n.IsLong()
}

// Length returns the content length in octets.
func (n Nested) Length() int {
	if n.IsLong() {
		return int(n.header() & maxLongContent)
	}
	return int(n.header() & maxShortContent)
}

// TotalLen returns the header plus content length.
func (n Nested) TotalLen() int {
	return headerLen + n.Length()
}

// SubID returns the element sub-ID. Unknown codes map to the Unknown members.
func (n Nested) SubID() SubID {
	h := n.header()
	if h&typeBit != 0 {
		return LongID(LongSubIDFromCode(uint8((h >> 11) & 0x0f)))
	}
	return ShortID(ShortSubIDFromCode(uint8((h >> 8) & 0x3f)))
}

// Content returns exactly Length() bytes following the header.
func (n Nested) Content() []byte {
	return n.b[headerLen : headerLen+n.Length()]
}

// Validate checks the header and declared content fit in the buffer.
func (n Nested) Validate() error {
	if len(n.b) < headerLen {
		return errors.Wrapf(dot15d4.ErrTruncated, "nested ie header: have %d bytes", len(n.b))
	}
	if n.TotalLen() > len(n.b) {
		return errors.Wrapf(dot15d4.ErrTruncated, "nested ie %s: want %d bytes, have %d", n.SubID(), n.TotalLen(), len(n.b))
	}
	return nil
}

func (n Nested) String() string {
	if len(n.b) < headerLen {
		return fmt.Sprintf("truncated(%x)", n.b)
	}
	repr, err := ParseNested(n, dot15d4.OptParseMode(dot15d4.ModeRecoverable))
	if err != nil {
		return fmt.Sprintf("%s(%x)", n.SubID(), n.b[headerLen:])
	}
	return fmt.Sprintf("%s %s", n.SubID(), repr)
}

// PutHeader writes a nested element header for id and length into b.
func PutHeader(b []byte, id SubID, length int) error {
	if len(b) < headerLen {
		return errors.Wrapf(dot15d4.ErrBufferTooShort, "nested ie header: have %d bytes", len(b))
	}

	var h uint16
	if id.long {
		if id.code > 0x0f {
			return errors.Wrapf(dot15d4.ErrFieldOverflow, "long sub-id %#x does not fit 4 bits", id.code)
		}
		if length > maxLongContent {
			return errors.Wrapf(dot15d4.ErrContentTooLong, "%s: %d > %d", id, length, maxLongContent)
		}
		h = typeBit | uint16(id.code&0x0f)<<11 | uint16(length)
	} else {
		if id.code > 0x3f {
			return errors.Wrapf(dot15d4.ErrFieldOverflow, "short sub-id %#x does not fit 6 bits", id.code)
		}
		if length > maxShortContent {
			return errors.Wrapf(dot15d4.ErrContentTooLong, "%s: %d > %d", id, length, maxShortContent)
		}
		h = uint16(id.code)<<8 | uint16(length)
	}

	binary.LittleEndian.PutUint16(b, h)
	return nil
}

// AppendNested appends a complete element to dst.
func AppendNested(dst []byte, id SubID, content []byte) ([]byte, error) {
	var h [headerLen]byte
	if err := PutHeader(h[:], id, len(content)); err != nil {
		return dst, err
	}
	dst = append(dst, h[:]...)
	return append(dst, content...), nil
}

// NestedIterator walks a stream of nested elements. It is finite and cannot
// be restarted.
//
// In strict mode the caller guarantees the stream is well formed; a declared
// length past the end of the stream panics. In recoverable mode iteration
// stops and Err returns ErrTruncated.
type NestedIterator struct {
	data   []byte
	offset int
	opts   dot15d4.Options
	err    error
}

func NewNestedIterator(data []byte, opts ...dot15d4.Option) *NestedIterator {
	return &NestedIterator{data: data, opts: dot15d4.NewOptions(opts...)}
}

// Next returns the next element, or false once the stream is exhausted.
func (it *NestedIterator) Next() (Nested, bool) {
	if it.err != nil || it.offset >= len(it.data) {
		return Nested{}, false
	}

	rest := NewNested(it.data[it.offset:])
	if it.opts.Recoverable() {
		if err := rest.Validate(); err != nil {
			it.err = errors.Wrapf(err, "offset %d", it.offset)
			return Nested{}, false
		}
	}

	n := rest.TotalLen()
	elem := NewNested(it.data[it.offset : it.offset+n])
	it.offset += n
	return elem, true
}

// Offset returns the number of bytes consumed so far.
func (it *NestedIterator) Offset() int { return it.offset }

// Err returns the error that stopped iteration, if any.
func (it *NestedIterator) Err() error { return it.err }
