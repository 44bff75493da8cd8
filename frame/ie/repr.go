package ie

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
)

// NestedRepr is the decoded content of a nested element.
type NestedRepr interface {
	SubID() SubID
	// EncodedLen is the content length Emit writes, header excluded.
	EncodedLen() int
	Emit(b []byte) (int, error)
	String() string
}

// ParseNested decodes the content of n. Sub-IDs without a decoder return
// ErrUnsupported.
func ParseNested(n Nested, opts ...dot15d4.Option) (NestedRepr, error) {
	o := dot15d4.NewOptions(opts...)
	if o.Recoverable() {
		if err := n.Validate(); err != nil {
			return nil, err
		}
	}

	content := n.Content()
	id := n.SubID()
	if id.IsLong() {
		switch id.Long() {
		case ChannelHopping:
			ch := NewChannelHopping(content)
			if o.Recoverable() {
				if err := ch.Validate(); err != nil {
					return nil, err
				}
			}
			return ChannelHoppingRepr{HoppingSequenceID: ch.HoppingSequenceID()}, nil
		}
		return nil, errors.Wrapf(dot15d4.ErrUnsupported, "nested ie %s", id)
	}

	switch id.Short() {
	case TschSynchronization:
		s := NewSynchronization(content)
		if o.Recoverable() {
			if err := s.Validate(); err != nil {
				return nil, err
			}
		}
		return SynchronizationRepr{AbsoluteSlotNumber: s.AbsoluteSlotNumber(), JoinMetric: s.JoinMetric()}, nil

	case TschTimeslot:
		t := NewTimeslot(content)
		if o.Recoverable() {
			if err := t.Validate(); err != nil {
				return nil, err
			}
		}
		return TimeslotRepr{Variant: t.Variant(), Timings: t.Timings(o.GuardTime)}, nil

	case TschSlotframeAndLink:
		return parseSlotframeAndLink(NewSlotframeAndLink(content), o)
	}

	return nil, errors.Wrapf(dot15d4.ErrUnsupported, "nested ie %s", id)
}

// AppendNestedRepr appends r as a complete element, header included.
func AppendNestedRepr(dst []byte, r NestedRepr) ([]byte, error) {
	content := make([]byte, r.EncodedLen())
	if _, err := r.Emit(content); err != nil {
		return dst, err
	}
	return AppendNested(dst, r.SubID(), content)
}

// SynchronizationRepr is a decoded TSCH Synchronization IE.
type SynchronizationRepr struct {
	AbsoluteSlotNumber uint64 `json:"asn"`
	JoinMetric         uint8  `json:"joinMetric"`
}

const maxASN = 1<<40 - 1

func (SynchronizationRepr) SubID() SubID { return ShortID(TschSynchronization) }

func (SynchronizationRepr) EncodedLen() int { return synchronizationLen }

func (s SynchronizationRepr) Emit(b []byte) (int, error) {
	if len(b) < synchronizationLen {
		return 0, errors.Wrapf(dot15d4.ErrBufferTooShort, "tsch synchronization: have %d bytes", len(b))
	}
	if s.AbsoluteSlotNumber > maxASN {
		return 0, errors.Wrapf(dot15d4.ErrFieldOverflow, "asn %d does not fit 40 bits", s.AbsoluteSlotNumber)
	}
	for i := 0; i < 5; i++ {
		b[i] = byte(s.AbsoluteSlotNumber >> (8 * uint(i)))
	}
	b[5] = s.JoinMetric
	return synchronizationLen, nil
}

func (s SynchronizationRepr) String() string {
	return fmt.Sprintf("ASN: %d, join metric: %d", s.AbsoluteSlotNumber, s.JoinMetric)
}

// TimeslotRepr is a decoded TSCH Timeslot IE. Variant records the wire shape
// so that a parsed record emits back to the same size.
type TimeslotRepr struct {
	Variant TimeslotVariant `json:"variant"`
	Timings TimeslotTimings `json:"timings"`
}

// NewTimeslotRepr picks the smallest variant that carries tt.
func NewTimeslotRepr(tt TimeslotTimings) TimeslotRepr {
	return TimeslotRepr{Variant: tt.Variant(), Timings: tt}
}

func (TimeslotRepr) SubID() SubID { return ShortID(TschTimeslot) }

func (t TimeslotRepr) EncodedLen() int { return t.Variant.EncodedLen() }

func (t TimeslotRepr) Emit(b []byte) (int, error) {
	return t.Timings.Emit(b, t.Variant)
}

func (t TimeslotRepr) String() string {
	return fmt.Sprintf("slot ID: %d (%s)", t.Timings.ID, t.Variant)
}

// LinkDescriptorRepr is a decoded link descriptor.
type LinkDescriptorRepr struct {
	Timeslot      uint16     `json:"timeslot"`
	ChannelOffset uint16     `json:"channelOffset"`
	Options       LinkOption `json:"options"`
}

func (l LinkDescriptorRepr) emit(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], l.Timeslot)
	binary.LittleEndian.PutUint16(b[2:4], l.ChannelOffset)
	b[4] = uint8(l.Options)
}

// SlotframeDescriptorRepr is a decoded slotframe descriptor.
type SlotframeDescriptorRepr struct {
	Handle uint8                `json:"handle"`
	Size   uint16               `json:"size"`
	Links  []LinkDescriptorRepr `json:"links"`
}

func (s SlotframeDescriptorRepr) encodedLen() int {
	return slotframeHeaderLen + len(s.Links)*linkDescriptorLen
}

// SlotframeAndLinkRepr is a decoded TSCH Slotframe and Link IE.
type SlotframeAndLinkRepr struct {
	Slotframes []SlotframeDescriptorRepr `json:"slotframes"`
}

func parseSlotframeAndLink(s SlotframeAndLink, o dot15d4.Options) (NestedRepr, error) {
	if o.Recoverable() && len(s.b) < 1 {
		return nil, errors.Wrap(dot15d4.ErrTruncated, "tsch slotframe and link: empty")
	}

	mode := dot15d4.OptParseMode(o.Mode)
	repr := SlotframeAndLinkRepr{Slotframes: []SlotframeDescriptorRepr{}}
	sfs := s.Slotframes(mode)
	for sf, ok := sfs.Next(); ok; sf, ok = sfs.Next() {
		d := SlotframeDescriptorRepr{Handle: sf.Handle(), Size: sf.Size(), Links: []LinkDescriptorRepr{}}
		links := sf.Links(mode)
		for l, ok := links.Next(); ok; l, ok = links.Next() {
			d.Links = append(d.Links, LinkDescriptorRepr{
				Timeslot:      l.Timeslot(),
				ChannelOffset: l.ChannelOffset(),
				Options:       l.Options(),
			})
		}
		if err := links.Err(); err != nil {
			return nil, errors.Wrapf(err, "slotframe %d", d.Handle)
		}
		repr.Slotframes = append(repr.Slotframes, d)
	}
	if err := sfs.Err(); err != nil {
		return nil, err
	}
	return repr, nil
}

func (SlotframeAndLinkRepr) SubID() SubID { return ShortID(TschSlotframeAndLink) }

func (s SlotframeAndLinkRepr) EncodedLen() int {
	n := 1
	for _, sf := range s.Slotframes {
		n += sf.encodedLen()
	}
	return n
}

func (s SlotframeAndLinkRepr) Emit(b []byte) (int, error) {
	n := s.EncodedLen()
	if len(b) < n {
		return 0, errors.Wrapf(dot15d4.ErrBufferTooShort, "tsch slotframe and link: want %d bytes, have %d", n, len(b))
	}
	if len(s.Slotframes) > 0xff {
		return 0, errors.Wrapf(dot15d4.ErrFieldOverflow, "%d slotframes", len(s.Slotframes))
	}

	b[0] = uint8(len(s.Slotframes))
	off := 1
	for _, sf := range s.Slotframes {
		if len(sf.Links) > 0xff {
			return 0, errors.Wrapf(dot15d4.ErrFieldOverflow, "slotframe %d: %d links", sf.Handle, len(sf.Links))
		}
		b[off] = sf.Handle
		binary.LittleEndian.PutUint16(b[off+1:off+3], sf.Size)
		b[off+3] = uint8(len(sf.Links))
		off += slotframeHeaderLen
		for _, l := range sf.Links {
			l.emit(b[off : off+linkDescriptorLen])
			off += linkDescriptorLen
		}
	}
	return n, nil
}

func (s SlotframeAndLinkRepr) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#slot frames: %d", len(s.Slotframes))
	for _, sf := range s.Slotframes {
		fmt.Fprintf(&sb, "\n  handle: %d, size: %d, #links: %d", sf.Handle, sf.Size, len(sf.Links))
		for _, l := range sf.Links {
			fmt.Fprintf(&sb, "\n    timeslot: %d, channel offset: %d, options: %s", l.Timeslot, l.ChannelOffset, l.Options)
		}
	}
	return sb.String()
}

// ChannelHoppingRepr is a decoded Channel Hopping IE.
type ChannelHoppingRepr struct {
	HoppingSequenceID uint8 `json:"hoppingSequenceId"`
}

func (ChannelHoppingRepr) SubID() SubID { return LongID(ChannelHopping) }

func (ChannelHoppingRepr) EncodedLen() int { return 1 }

func (c ChannelHoppingRepr) Emit(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, errors.Wrap(dot15d4.ErrBufferTooShort, "channel hopping")
	}
	b[0] = c.HoppingSequenceID
	return 1, nil
}

func (c ChannelHoppingRepr) String() string {
	return fmt.Sprintf("sequence ID: %d", c.HoppingSequenceID)
}
