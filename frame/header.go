package frame

import (
	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
)

const sequenceNumberLen = 1

// Header is the decoded fixed part of a MAC header: Frame Control, the
// optional Sequence Number and the Addressing Fields. It stops where the
// Auxiliary Security Header or the information elements start.
type Header struct {
	FrameControl   FrameControlRepr     `json:"frameControl"`
	SequenceNumber *uint8               `json:"sequenceNumber,omitempty"`
	Addressing     AddressingFieldsRepr `json:"addressing"`

	// Len is the offset of the first byte after the addressing fields.
	Len int `json:"length"`
}

// ParseHeader decodes the header at the start of frame.
//
// The Frame Control length is always checked. In strict mode the rest of
// the header is trusted to fit in frame; in recoverable mode it is checked
// and ErrTruncated returned.
func ParseHeader(frame []byte, opts ...dot15d4.Option) (Header, error) {
	o := dot15d4.NewOptions(opts...)

	fc, err := NewFrameControl(frame)
	if err != nil {
		return Header{}, err
	}

	h := Header{FrameControl: ParseFrameControl(fc)}
	off := FrameControlLen

	if !fc.SequenceNumberSuppression() {
		if o.Recoverable() && len(frame) < off+sequenceNumberLen {
			return h, errors.Wrap(dot15d4.ErrTruncated, "sequence number")
		}
		seq := frame[off]
		h.SequenceNumber = &seq
		off += sequenceNumberLen
	}

	fields := NewAddressingFields(frame[off:])
	if o.Recoverable() {
		if err := fields.Validate(fc); err != nil {
			return h, err
		}
	}

	h.Addressing, err = ParseAddressingFields(fields, fc)
	if err != nil {
		return h, err
	}

	n, _ := fields.Len(fc)
	h.Len = off + n
	return h, nil
}

// BufferLen returns the number of octets Emit writes.
func (h Header) BufferLen() int {
	n := FrameControlLen + h.Addressing.BufferLen()
	if h.SequenceNumber != nil {
		n += sequenceNumberLen
	}
	return n
}

// Emit writes the header into buf and returns the number of bytes written.
// The sequence number suppression bit is derived from SequenceNumber.
func (h Header) Emit(buf []byte) (int, error) {
	if need := h.BufferLen(); len(buf) < need {
		return 0, errors.Wrapf(dot15d4.ErrBufferTooShort, "header: want %d bytes, have %d", need, len(buf))
	}

	fc := NewFrameControlUnchecked(buf)
	repr := h.FrameControl
	repr.SequenceNumberSuppression = h.SequenceNumber == nil
	repr.Emit(fc)

	off := FrameControlLen
	if h.SequenceNumber != nil {
		buf[off] = *h.SequenceNumber
		off += sequenceNumberLen
	}

	if err := NewAddressingFields(buf[off:]).WriteFields(h.Addressing); err != nil {
		return 0, err
	}
	return off + h.Addressing.BufferLen(), nil
}
