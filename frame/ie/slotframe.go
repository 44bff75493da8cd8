package ie

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
)

const (
	slotframeHeaderLen = 4
	linkDescriptorLen  = 5
)

// SlotframeAndLink is a reader over the TSCH Slotframe and Link IE content.
//
//	+----------------------+--------------------------+
//	| Number of slotframes | Slotframe descriptors... |
//	+----------------------+--------------------------+
//	0                      1
type SlotframeAndLink struct {
	b []byte
}

func NewSlotframeAndLink(b []byte) SlotframeAndLink {
	return SlotframeAndLink{b: b}
}

func (s SlotframeAndLink) NumberOfSlotframes() uint8 {
	return s.b[0]
}

// Slotframes iterates the slotframe descriptors.
func (s SlotframeAndLink) Slotframes(opts ...dot15d4.Option) *SlotframeIterator {
	return NewSlotframeIterator(int(s.NumberOfSlotframes()), s.b[1:], opts...)
}

func (s SlotframeAndLink) Validate() error {
	if len(s.b) < 1 {
		return errors.Wrap(dot15d4.ErrTruncated, "tsch slotframe and link: empty")
	}
	it := s.Slotframes(dot15d4.OptParseMode(dot15d4.ModeRecoverable))
	for {
		sf, ok := it.Next()
		if !ok {
			break
		}
		links := sf.Links(dot15d4.OptParseMode(dot15d4.ModeRecoverable))
		for _, ok := links.Next(); ok; _, ok = links.Next() {
		}
		if err := links.Err(); err != nil {
			return err
		}
	}
	return it.Err()
}

func (s SlotframeAndLink) String() string {
	return fmt.Sprintf("#slot frames: %d", s.NumberOfSlotframes())
}

// SlotframeDescriptor is a reader over one slotframe descriptor.
//
//	+--------+------+-------+---------------------+
//	| Handle | Size | Links | Link descriptors... |
//	+--------+------+-------+---------------------+
//	0        1      3       4
type SlotframeDescriptor struct {
	b []byte
}

func NewSlotframeDescriptor(b []byte) SlotframeDescriptor {
	return SlotframeDescriptor{b: b}
}

// Len returns the descriptor size in octets: 4 + links*5.
func (s SlotframeDescriptor) Len() int {
	return slotframeHeaderLen + int(s.NumberOfLinks())*linkDescriptorLen
}

func (s SlotframeDescriptor) Handle() uint8 {
	return s.b[0]
}

// Size returns the slotframe size in timeslots.
func (s SlotframeDescriptor) Size() uint16 {
	return binary.LittleEndian.Uint16(s.b[1:3])
}

func (s SlotframeDescriptor) NumberOfLinks() uint8 {
	return s.b[3]
}

// Links iterates the link descriptors of this slotframe.
func (s SlotframeDescriptor) Links(opts ...dot15d4.Option) *LinkIterator {
	end := s.Len()
	if end > len(s.b) {
		end = len(s.b)
	}
	return NewLinkIterator(int(s.NumberOfLinks()), s.b[slotframeHeaderLen:end], opts...)
}

// SlotframeIterator walks slotframe descriptors. It stops after count
// descriptors or at the end of the buffer, whichever comes first.
type SlotframeIterator struct {
	data   []byte
	offset int
	count  int
	seen   int
	opts   dot15d4.Options
	err    error
}

func NewSlotframeIterator(count int, data []byte, opts ...dot15d4.Option) *SlotframeIterator {
	return &SlotframeIterator{data: data, count: count, opts: dot15d4.NewOptions(opts...)}
}

func (it *SlotframeIterator) Next() (SlotframeDescriptor, bool) {
	if it.err != nil || it.seen >= it.count || it.offset >= len(it.data) {
		return SlotframeDescriptor{}, false
	}

	rest := it.data[it.offset:]
	if it.opts.Recoverable() {
		if len(rest) < slotframeHeaderLen {
			it.err = errors.Wrapf(dot15d4.ErrTruncated, "slotframe descriptor %d: have %d bytes", it.seen, len(rest))
			return SlotframeDescriptor{}, false
		}
		if n := NewSlotframeDescriptor(rest).Len(); n > len(rest) {
			it.err = errors.Wrapf(dot15d4.ErrTruncated, "slotframe descriptor %d: want %d bytes, have %d", it.seen, n, len(rest))
			return SlotframeDescriptor{}, false
		}
	}

	n := NewSlotframeDescriptor(rest).Len()
	sf := NewSlotframeDescriptor(rest[:n])
	it.offset += n
	it.seen++
	return sf, true
}

// Offset returns the number of bytes consumed so far.
func (it *SlotframeIterator) Offset() int { return it.offset }

func (it *SlotframeIterator) Err() error { return it.err }

// LinkOption is the link options bitfield.
//
//	+----+----+--------+--------------+----------+----------+
//	| Tx | Rx | Shared | Time keeping | Priority | Reserved |
//	+----+----+--------+--------------+----------+----------+
type LinkOption uint8

const (
	LinkOptionTx LinkOption = 1 << iota
	LinkOptionRx
	LinkOptionShared
	LinkOptionTimeKeeping
	LinkOptionPriority

	linkOptionMask = LinkOptionTx | LinkOptionRx | LinkOptionShared | LinkOptionTimeKeeping | LinkOptionPriority
)

// LinkOptionFromBits drops reserved bits.
func LinkOptionFromBits(b uint8) LinkOption {
	return LinkOption(b) & linkOptionMask
}

func (o LinkOption) Has(flag LinkOption) bool {
	return o&flag == flag
}

func (o LinkOption) String() string {
	names := []string{"Tx", "Rx", "Shared", "TimeKeeping", "Priority"}
	var out []string
	for i, n := range names {
		if o&(1<<uint(i)) != 0 {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return "0x0"
	}
	return strings.Join(out, " | ")
}

// LinkDescriptor is a reader over one 5-byte link descriptor.
//
//	+----------+----------------+--------------+
//	| Timeslot | Channel offset | Link options |
//	+----------+----------------+--------------+
//	0          2                4
type LinkDescriptor struct {
	b []byte
}

func NewLinkDescriptor(b []byte) LinkDescriptor {
	return LinkDescriptor{b: b}
}

func (l LinkDescriptor) Timeslot() uint16 {
	return binary.LittleEndian.Uint16(l.b[0:2])
}

func (l LinkDescriptor) ChannelOffset() uint16 {
	return binary.LittleEndian.Uint16(l.b[2:4])
}

func (l LinkDescriptor) Options() LinkOption {
	return LinkOptionFromBits(l.b[4])
}

func (l LinkDescriptor) String() string {
	return fmt.Sprintf("timeslot: %d, channel offset: %d, options: %s", l.Timeslot(), l.ChannelOffset(), l.Options())
}

// LinkIterator walks fixed-size link descriptors, bounded by the declared
// link count and by the buffer.
type LinkIterator struct {
	data   []byte
	offset int
	count  int
	seen   int
	opts   dot15d4.Options
	err    error
}

func NewLinkIterator(count int, data []byte, opts ...dot15d4.Option) *LinkIterator {
	return &LinkIterator{data: data, count: count, opts: dot15d4.NewOptions(opts...)}
}

func (it *LinkIterator) Next() (LinkDescriptor, bool) {
	if it.err != nil || it.seen >= it.count {
		return LinkDescriptor{}, false
	}

	end := it.offset + linkDescriptorLen
	if end > len(it.data) {
		if it.opts.Recoverable() {
			it.err = errors.Wrapf(dot15d4.ErrTruncated, "link descriptor %d of %d", it.seen, it.count)
		}
		return LinkDescriptor{}, false
	}

	l := NewLinkDescriptor(it.data[it.offset:end])
	it.offset = end
	it.seen++
	return l, true
}

func (it *LinkIterator) Err() error { return it.err }

// ChannelHoppingIE is a reader over the Channel Hopping IE content. Only the
// hopping sequence ID is decoded.
//
//	+-------------+-----+
//	| Sequence ID | ... |
//	+-------------+-----+
//	0             1
type ChannelHoppingIE struct {
	b []byte
}

func NewChannelHopping(b []byte) ChannelHoppingIE {
	return ChannelHoppingIE{b: b}
}

func (c ChannelHoppingIE) HoppingSequenceID() uint8 {
	return c.b[0]
}

func (c ChannelHoppingIE) Validate() error {
	if len(c.b) < 1 {
		return errors.Wrap(dot15d4.ErrTruncated, "channel hopping: empty")
	}
	return nil
}

func (c ChannelHoppingIE) String() string {
	return fmt.Sprintf("sequence ID: %d", c.HoppingSequenceID())
}
