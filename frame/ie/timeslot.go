package ie

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
)

// Synchronization is a reader over the TSCH Synchronization IE content.
//
//	+-----+-------------+
//	| ASN | Join metric |
//	+-----+-------------+
//	0     5             6
type Synchronization struct {
	b []byte
}

const synchronizationLen = 6

func NewSynchronization(b []byte) Synchronization {
	return Synchronization{b: b}
}

// AbsoluteSlotNumber returns the 40-bit ASN widened to 64 bits.
func (s Synchronization) AbsoluteSlotNumber() uint64 {
	var asn uint64
	for i := 4; i >= 0; i-- {
		asn = asn<<8 | uint64(s.b[i])
	}
	return asn
}

func (s Synchronization) JoinMetric() uint8 {
	return s.b[5]
}

func (s Synchronization) Validate() error {
	if len(s.b) < synchronizationLen {
		return errors.Wrapf(dot15d4.ErrTruncated, "tsch synchronization: have %d bytes", len(s.b))
	}
	return nil
}

func (s Synchronization) String() string {
	return fmt.Sprintf("ASN: %d, join metric: %d", s.AbsoluteSlotNumber(), s.JoinMetric())
}

// TimeslotVariant is the shape of a Timeslot IE record.
type TimeslotVariant int

const (
	// TimeslotVariantDefault is a bare ID of 0: the default template.
	TimeslotVariantDefault TimeslotVariant = iota

	// TimeslotVariantShort is the 25-byte record with 2-byte max TX and
	// timeslot length fields.
	TimeslotVariantShort

	// TimeslotVariantLong is the 27-byte record with 3-byte max TX and
	// timeslot length fields.
	TimeslotVariantLong
)

const (
	timeslotShortLen = 25
	timeslotLongLen  = 27
)

// TimeslotVariantFor decides the record variant. The wire format has no
// discriminator; a non-zero ID with exactly 25 bytes is the short variant,
// any other length is the long one.
func TimeslotVariantFor(id uint8, recordLen int) TimeslotVariant {
	switch {
	case id == DefaultTimeslotID:
		return TimeslotVariantDefault
	case recordLen == timeslotShortLen:
		return TimeslotVariantShort
	default:
		return TimeslotVariantLong
	}
}

// EncodedLen returns the record size of v, ID included.
func (v TimeslotVariant) EncodedLen() int {
	switch v {
	case TimeslotVariantShort:
		return timeslotShortLen
	case TimeslotVariantLong:
		return timeslotLongLen
	}
	return 1
}

func (v TimeslotVariant) wideWidth() int {
	if v == TimeslotVariantLong {
		return 3
	}
	return 2
}

func (v TimeslotVariant) String() string {
	switch v {
	case TimeslotVariantShort:
		return "short"
	case TimeslotVariantLong:
		return "long"
	}
	return "default"
}

// DefaultTimeslotID selects the default timeslot template.
const DefaultTimeslotID uint8 = 0

// Timeslot is a reader over the TSCH Timeslot IE content.
//
//	+----+--------------------------+
//	| ID | TSCH timeslot timings... |
//	+----+--------------------------+
//	0    1
type Timeslot struct {
	b []byte
}

func NewTimeslot(b []byte) Timeslot {
	return Timeslot{b: b}
}

func (t Timeslot) ID() uint8 {
	return t.b[0]
}

func (t Timeslot) Variant() TimeslotVariant {
	return TimeslotVariantFor(t.ID(), len(t.b))
}

func (t Timeslot) Validate() error {
	if len(t.b) < 1 {
		return errors.Wrap(dot15d4.ErrTruncated, "tsch timeslot: empty")
	}
	if need := t.Variant().EncodedLen(); len(t.b) < need {
		return errors.Wrapf(dot15d4.ErrTruncated, "tsch timeslot: want %d bytes, have %d", need, len(t.b))
	}
	return nil
}

// Timings returns the timeslot timings. An ID of 0 yields the default
// template for guard, whatever follows on the wire.
func (t Timeslot) Timings(guard time.Duration) TimeslotTimings {
	v := t.Variant()
	if v == TimeslotVariantDefault {
		return DefaultTimeslotTimings(guard)
	}

	tt := TimeslotTimings{ID: t.ID()}
	off := 1
	for _, f := range tt.fields() {
		w := 2
		if f.wide {
			w = v.wideWidth()
		}
		*f.d = readMicros(t.b[off : off+w])
		off += w
	}
	return tt
}

func (t Timeslot) String() string {
	return fmt.Sprintf("slot ID: %d", t.ID())
}

func readMicros(b []byte) time.Duration {
	var us uint32
	for i := len(b) - 1; i >= 0; i-- {
		us = us<<8 | uint32(b[i])
	}
	return time.Duration(us) * time.Microsecond
}

func putMicros(b []byte, d time.Duration) error {
	us := int64(d / time.Microsecond)
	if us < 0 || us >= int64(1)<<(8*uint(len(b))) {
		return errors.Wrapf(dot15d4.ErrFieldOverflow, "%v in %d bytes", d, len(b))
	}
	for i := range b {
		b[i] = byte(us >> (8 * uint(i)))
	}
	return nil
}

// TimeslotTimings is the TSCH timeslot template (IEEE 802.15.4-2020 figure 6-30).
type TimeslotTimings struct {
	ID uint8 `json:"id"`

	// Offset from the start of the timeslot to the start of the CCA.
	CCAOffset time.Duration `json:"ccaOffset"`
	// Duration of the CCA.
	CCA time.Duration `json:"cca"`
	// Offset from the start of the timeslot to the start of the TX.
	TxOffset time.Duration `json:"txOffset"`
	// Offset from the start of the timeslot to the start of the RX.
	RxOffset time.Duration `json:"rxOffset"`
	// Wait between the end of the TX and the start of the ACK RX.
	RxAckDelay time.Duration `json:"rxAckDelay"`
	// Wait between the end of the RX and the start of the ACK TX.
	TxAckDelay time.Duration `json:"txAckDelay"`
	// Maximum time to wait for a frame.
	RxWait time.Duration `json:"rxWait"`
	// Maximum time to wait for an ACK.
	AckWait time.Duration `json:"ackWait"`
	// Radio turnaround time.
	RxTx time.Duration `json:"rxTx"`
	// Maximum transmission time for an ACK.
	MaxAck time.Duration `json:"maxAck"`
	// Maximum transmission time for a frame.
	MaxTx          time.Duration `json:"maxTx"`
	TimeslotLength time.Duration `json:"timeslotLength"`
}

// DefaultTimeslotTimings returns the default template (ID 0) for guard.
func DefaultTimeslotTimings(guard time.Duration) TimeslotTimings {
	us := time.Microsecond
	return TimeslotTimings{
		ID:             DefaultTimeslotID,
		CCAOffset:      1800 * us,
		CCA:            128 * us,
		TxOffset:       2120 * us,
		RxOffset:       2120*us - guard/2,
		RxAckDelay:     800 * us,
		TxAckDelay:     1000 * us,
		RxWait:         guard,
		AckWait:        400 * us,
		RxTx:           192 * us,
		MaxAck:         2400 * us,
		MaxTx:          4256 * us,
		TimeslotLength: 10000 * us,
	}
}

type timingField struct {
	name string
	d    *time.Duration
	wide bool
}

// fields lists the timings in wire order.
func (t *TimeslotTimings) fields() []timingField {
	return []timingField{
		{"cca offset", &t.CCAOffset, false},
		{"cca", &t.CCA, false},
		{"tx offset", &t.TxOffset, false},
		{"rx offset", &t.RxOffset, false},
		{"rx ack delay", &t.RxAckDelay, false},
		{"tx ack delay", &t.TxAckDelay, false},
		{"rx wait", &t.RxWait, false},
		{"ack wait", &t.AckWait, false},
		{"rx/tx", &t.RxTx, false},
		{"max ack", &t.MaxAck, false},
		{"max tx", &t.MaxTx, true},
		{"time slot length", &t.TimeslotLength, true},
	}
}

// Variant returns the smallest record variant able to carry t.
func (t TimeslotTimings) Variant() TimeslotVariant {
	if t.ID == DefaultTimeslotID {
		return TimeslotVariantDefault
	}
	if t.MaxTx > 0xffff*time.Microsecond || t.TimeslotLength > 0xffff*time.Microsecond {
		return TimeslotVariantLong
	}
	return TimeslotVariantShort
}

// Emit writes t as a record of variant v into b and returns its length.
// The default variant writes the ID alone.
func (t TimeslotTimings) Emit(b []byte, v TimeslotVariant) (int, error) {
	n := v.EncodedLen()
	if len(b) < n {
		return 0, errors.Wrapf(dot15d4.ErrBufferTooShort, "tsch timeslot: want %d bytes, have %d", n, len(b))
	}
	if (v == TimeslotVariantDefault) != (t.ID == DefaultTimeslotID) {
		return 0, errors.Errorf("tsch timeslot: id %d cannot use the %s variant", t.ID, v)
	}

	b[0] = t.ID
	if v == TimeslotVariantDefault {
		return n, nil
	}

	off := 1
	for _, f := range t.fields() {
		w := 2
		if f.wide {
			w = v.wideWidth()
		}
		if err := putMicros(b[off:off+w], *f.d); err != nil {
			return 0, errors.Wrap(err, f.name)
		}
		off += w
	}
	return n, nil
}

func (t TimeslotTimings) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "id: %d\n", t.ID)
	for _, f := range t.fields() {
		fmt.Fprintf(&sb, "%s: %v\n", f.name, *f.d)
	}
	return sb.String()
}
