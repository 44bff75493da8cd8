package ie

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, b []byte, opts ...dot15d4.Option) NestedRepr {
	t.Helper()
	r, err := ParseNested(NewNested(b), opts...)
	require.NoError(t, err)
	return r
}

func TestSynchronization(t *testing.T) {
	b := []byte{0x06, 0x1a, 0x01, 0x02, 0x03, 0x04, 0x05, 0x07}

	s := NewSynchronization(NewNested(b).Content())
	assert.Equal(t, uint64(0x0504030201), s.AbsoluteSlotNumber())
	assert.Equal(t, uint8(7), s.JoinMetric())

	r := parse(t, b)
	assert.Equal(t, SynchronizationRepr{AbsoluteSlotNumber: 0x0504030201, JoinMetric: 7}, r)

	out, err := AppendNestedRepr(nil, r)
	require.NoError(t, err)
	assert.Equal(t, b, out)

	_, err = SynchronizationRepr{AbsoluteSlotNumber: 1 << 40}.Emit(make([]byte, 6))
	assert.True(t, errors.Is(err, dot15d4.ErrFieldOverflow), "%v", err)

	_, err = ParseNested(NewNested([]byte{0x02, 0x1a, 0x01, 0x02}), recoverable)
	assert.True(t, errors.Is(err, dot15d4.ErrTruncated), "%v", err)
}

func TestTimeslotVariantFor(t *testing.T) {
	assert.Equal(t, TimeslotVariantDefault, TimeslotVariantFor(0, 1))
	assert.Equal(t, TimeslotVariantDefault, TimeslotVariantFor(0, 25))
	assert.Equal(t, TimeslotVariantShort, TimeslotVariantFor(1, 25))
	assert.Equal(t, TimeslotVariantLong, TimeslotVariantFor(1, 27))
	assert.Equal(t, TimeslotVariantLong, TimeslotVariantFor(1, 3))
}

func TestTimeslotDefault(t *testing.T) {
	// trailing bytes after a zero ID are ignored
	b := []byte{0x03, 0x1c, 0x00, 0xaa, 0xbb}

	r := parse(t, b)
	ts, ok := r.(TimeslotRepr)
	require.True(t, ok)
	assert.Equal(t, TimeslotVariantDefault, ts.Variant)
	assert.Equal(t, DefaultTimeslotTimings(dot15d4.DefaultGuardTime), ts.Timings)
	assert.Equal(t, 2120*time.Microsecond-1100*time.Microsecond, ts.Timings.RxOffset)
	assert.Equal(t, 2200*time.Microsecond, ts.Timings.RxWait)

	out, err := AppendNestedRepr(nil, r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x1c, 0x00}, out)

	again := parse(t, out)
	assert.Equal(t, r, again)

	guarded := parse(t, b, dot15d4.OptGuardTime(1000*time.Microsecond)).(TimeslotRepr)
	assert.Equal(t, 1000*time.Microsecond, guarded.Timings.RxWait)
	assert.Equal(t, 1620*time.Microsecond, guarded.Timings.RxOffset)
}

func customTimings() TimeslotTimings {
	us := time.Microsecond
	return TimeslotTimings{
		ID:             7,
		CCAOffset:      1000 * us,
		CCA:            100 * us,
		TxOffset:       1500 * us,
		RxOffset:       1000 * us,
		RxAckDelay:     600 * us,
		TxAckDelay:     800 * us,
		RxWait:         1000 * us,
		AckWait:        300 * us,
		RxTx:           150 * us,
		MaxAck:         2000 * us,
		MaxTx:          4000 * us,
		TimeslotLength: 9000 * us,
	}
}

func TestTimeslotShort(t *testing.T) {
	tt := customTimings()
	r := NewTimeslotRepr(tt)
	require.Equal(t, TimeslotVariantShort, r.Variant)
	assert.Equal(t, 25, r.EncodedLen())

	b, err := AppendNestedRepr(nil, r)
	require.NoError(t, err)
	require.Len(t, b, 27)
	assert.Equal(t, []byte{0x19, 0x1c, 0x07, 0xe8, 0x03}, b[:5])

	n := NewNested(b)
	view := NewTimeslot(n.Content())
	assert.Equal(t, uint8(7), view.ID())
	assert.Equal(t, TimeslotVariantShort, view.Variant())
	assert.NoError(t, view.Validate())
	assert.Equal(t, tt, view.Timings(dot15d4.DefaultGuardTime))

	assert.Equal(t, r, parse(t, b))
}

func TestTimeslotLong(t *testing.T) {
	tt := customTimings()
	tt.MaxTx = 70000 * time.Microsecond
	tt.TimeslotLength = 100000 * time.Microsecond

	r := NewTimeslotRepr(tt)
	require.Equal(t, TimeslotVariantLong, r.Variant)
	assert.Equal(t, 27, r.EncodedLen())

	b, err := AppendNestedRepr(nil, r)
	require.NoError(t, err)
	require.Len(t, b, 29)

	// max tx (3 bytes) then timeslot length (3 bytes)
	assert.Equal(t, []byte{0x70, 0x11, 0x01, 0xa0, 0x86, 0x01}, b[23:])

	got := parse(t, b).(TimeslotRepr)
	assert.Equal(t, TimeslotVariantLong, got.Variant)
	assert.Equal(t, tt, got.Timings)
}

func TestTimeslotLongRun(t *testing.T) {
	tt := customTimings()
	tt.MaxTx = 70000 * time.Microsecond
	tt.TimeslotLength = 100000 * time.Microsecond

	var b []byte
	for i := 0; i < 3; i++ {
		var err error
		b, err = AppendNestedRepr(b, NewTimeslotRepr(tt))
		require.NoError(t, err)
	}
	require.Len(t, b, 87)

	it := NewNestedIterator(b, recoverable)
	n := 0
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		r, err := ParseNested(e)
		require.NoError(t, err)
		assert.Equal(t, tt, r.(TimeslotRepr).Timings)
		n++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 3, n)
	assert.Equal(t, len(b), it.Offset())
}

func TestTimeslotEmitErrors(t *testing.T) {
	tt := customTimings()

	_, err := tt.Emit(make([]byte, 10), TimeslotVariantShort)
	assert.True(t, errors.Is(err, dot15d4.ErrBufferTooShort), "%v", err)

	tt.MaxTx = 70000 * time.Microsecond
	_, err = tt.Emit(make([]byte, 25), TimeslotVariantShort)
	assert.True(t, errors.Is(err, dot15d4.ErrFieldOverflow), "%v", err)

	_, err = tt.Emit(make([]byte, 25), TimeslotVariantDefault)
	assert.Error(t, err)
}

func TestTimeslotTruncated(t *testing.T) {
	b := []byte{0x05, 0x1c, 0x01, 0x00, 0x00, 0x00, 0x00}
	_, err := ParseNested(NewNested(b), recoverable)
	assert.True(t, errors.Is(err, dot15d4.ErrTruncated), "%v", err)

	_, err = ParseNested(NewNested([]byte{0x00, 0x1c}), recoverable)
	assert.True(t, errors.Is(err, dot15d4.ErrTruncated), "%v", err)
}

func TestSlotframeAndLink(t *testing.T) {
	content := []byte{
		0x01,             // one slotframe
		0x00, 0x65, 0x00, // handle 0, size 101
		0x02,                         // two links
		0x00, 0x00, 0x00, 0x00, 0x0f, // timeslot 0, offset 0, tx|rx|shared|timekeeping
		0x01, 0x00, 0x02, 0x00, 0x12, // timeslot 1, offset 2, rx|priority
	}

	s := NewSlotframeAndLink(content)
	assert.Equal(t, uint8(1), s.NumberOfSlotframes())
	assert.NoError(t, s.Validate())

	sfs := s.Slotframes()
	sf, ok := sfs.Next()
	require.True(t, ok)
	assert.Equal(t, uint8(0), sf.Handle())
	assert.Equal(t, uint16(101), sf.Size())
	assert.Equal(t, uint8(2), sf.NumberOfLinks())
	assert.Equal(t, 14, sf.Len())

	links := sf.Links()
	l, ok := links.Next()
	require.True(t, ok)
	assert.Equal(t, uint16(0), l.Timeslot())
	assert.Equal(t, LinkOptionTx|LinkOptionRx|LinkOptionShared|LinkOptionTimeKeeping, l.Options())

	l, ok = links.Next()
	require.True(t, ok)
	assert.Equal(t, uint16(1), l.Timeslot())
	assert.Equal(t, uint16(2), l.ChannelOffset())
	assert.True(t, l.Options().Has(LinkOptionPriority))
	assert.False(t, l.Options().Has(LinkOptionTx))

	_, ok = links.Next()
	assert.False(t, ok)
	_, ok = sfs.Next()
	assert.False(t, ok)
	assert.Equal(t, len(content)-1, sfs.Offset())

	b, err := AppendNested(nil, ShortID(TschSlotframeAndLink), content)
	require.NoError(t, err)

	want := SlotframeAndLinkRepr{Slotframes: []SlotframeDescriptorRepr{{
		Handle: 0,
		Size:   101,
		Links: []LinkDescriptorRepr{
			{Timeslot: 0, ChannelOffset: 0, Options: LinkOptionTx | LinkOptionRx | LinkOptionShared | LinkOptionTimeKeeping},
			{Timeslot: 1, ChannelOffset: 2, Options: LinkOptionRx | LinkOptionPriority},
		},
	}}}
	r := parse(t, b)
	assert.Equal(t, want, r)

	out, err := AppendNestedRepr(nil, r)
	require.NoError(t, err)
	assert.Equal(t, b, out)
}

func TestSlotframeAndLinkEmpty(t *testing.T) {
	r := parse(t, []byte{0x01, 0x1b, 0x00}, recoverable)
	assert.Equal(t, SlotframeAndLinkRepr{Slotframes: []SlotframeDescriptorRepr{}}, r)

	sfs := NewSlotframeAndLink([]byte{0x00}).Slotframes()
	_, ok := sfs.Next()
	assert.False(t, ok)
}

func TestSlotframeIteratorBounds(t *testing.T) {
	sf := []byte{0x01, 0x08, 0x00, 0x00}

	// count stops iteration before the buffer does
	it := NewSlotframeIterator(2, append(append(append([]byte{}, sf...), sf...), sf...))
	n := 0
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, 8, it.Offset())

	// the buffer stops iteration before the count does
	it = NewSlotframeIterator(5, sf)
	n = 0
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	assert.Equal(t, 1, n)
	assert.NoError(t, it.Err())
}

func TestSlotframeTruncated(t *testing.T) {
	content := []byte{
		0x01,
		0x03, 0x10, 0x00,
		0x02,
		0x00, 0x00, 0x00, 0x00, 0x01,
	}

	it := NewSlotframeAndLink(content).Slotframes(recoverable)
	_, ok := it.Next()
	assert.False(t, ok)
	assert.True(t, errors.Is(it.Err(), dot15d4.ErrTruncated), "%v", it.Err())

	assert.True(t, errors.Is(NewSlotframeAndLink(content).Validate(), dot15d4.ErrTruncated))

	b, err := AppendNested(nil, ShortID(TschSlotframeAndLink), content)
	require.NoError(t, err)
	_, err = ParseNested(NewNested(b), recoverable)
	assert.True(t, errors.Is(err, dot15d4.ErrTruncated), "%v", err)

	links := NewLinkIterator(2, content[5:], recoverable)
	_, ok = links.Next()
	assert.True(t, ok)
	_, ok = links.Next()
	assert.False(t, ok)
	assert.True(t, errors.Is(links.Err(), dot15d4.ErrTruncated), "%v", links.Err())
}

func TestLinkOptionString(t *testing.T) {
	assert.Equal(t, "Tx | Rx", (LinkOptionTx | LinkOptionRx).String())
	assert.Equal(t, "0x0", LinkOption(0).String())
	assert.Equal(t, LinkOptionPriority, LinkOptionFromBits(0xf0))
}

func TestChannelHopping(t *testing.T) {
	b := []byte{0x01, 0xc8, 0x04}
	r := parse(t, b)
	assert.Equal(t, ChannelHoppingRepr{HoppingSequenceID: 4}, r)

	out, err := AppendNestedRepr(nil, r)
	require.NoError(t, err)
	assert.Equal(t, b, out)

	_, err = ParseNested(NewNested([]byte{0x00, 0xc8}), recoverable)
	assert.True(t, errors.Is(err, dot15d4.ErrTruncated), "%v", err)
}

func TestParseNestedUnsupported(t *testing.T) {
	for _, b := range [][]byte{
		{0x01, 0x1d, 0x00},
		{0x01, 0x37, 0x00},
		{0x01, 0xc0, 0x00},
	} {
		_, err := ParseNested(NewNested(b))
		assert.True(t, errors.Is(err, dot15d4.ErrUnsupported), "%x: %v", b, err)
	}
}
