package parser

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
	"github.com/rigado/dot15d4/frame/ie"
)

type testRegion struct {
	b []byte
}

func (t *testRegion) addShort(id ie.ShortSubID, content []byte) {
	b, err := ie.AppendNested(t.b, ie.ShortID(id), content)
	if err != nil {
		panic(err)
	}
	t.b = b
}

func (t *testRegion) addLong(id ie.LongSubID, content []byte) {
	b, err := ie.AppendNested(t.b, ie.LongID(id), content)
	if err != nil {
		panic(err)
	}
	t.b = b
}

func (t *testRegion) addBad(hdr0, hdr1 byte, content []byte) {
	t.b = append(t.b, hdr0, hdr1)
	t.b = append(t.b, content...)
}

func (t *testRegion) bytes() []byte {
	return t.b
}

func TestParseHeader(t *testing.T) {
	f := []byte{
		0x41, 0xd8, // data, pan id comp, dst short, 2006, src extended
		0x2a,
		0x34, 0x12,
		0xff, 0xff,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0xde, 0xad,
	}

	m, err := Parse(f)
	if err != nil {
		t.Fatalf("decode error %v", err)
	}
	t.Logf("%+v", m)

	exp := map[string]interface{}{
		Keys.FrameType:        "data",
		Keys.FrameVersion:     "2006",
		Keys.Security:         false,
		Keys.FramePending:     false,
		Keys.AckRequest:       false,
		Keys.PanIDCompression: true,
		Keys.IEPresent:        false,
		Keys.HeaderLen:        15,
		Keys.SequenceNumber:   uint8(0x2a),
		Keys.DstPanID:         uint16(0x1234),
		Keys.DstAddress:       "ff:ff",
		Keys.SrcAddress:       "01:02:03:04:05:06:07:08",
		Keys.Payload:          []byte{0xde, 0xad},
	}

	for k, v := range exp {
		got, ok := m[k]
		if !ok {
			t.Fatalf("missing key %v", k)
		}
		if !reflect.DeepEqual(got, v) {
			t.Fatalf("key %v: exp %v (%T), got %v (%T)", k, v, v, got, got)
		}
	}

	if len(m) != len(exp) {
		t.Fatalf("map has %v keys, exp %v", len(m), len(exp))
	}

	// payload is a copy
	f[15] = 0
	if m[Keys.Payload].([]byte)[0] != 0xde {
		t.Fatalf("payload aliases the input frame")
	}
}

func TestParseHeaderAbsentFields(t *testing.T) {
	// ack, 2020, seq suppressed, no addressing
	m, err := Parse([]byte{0x02, 0x21})
	if err != nil {
		t.Fatalf("decode error %v", err)
	}

	for _, k := range []string{Keys.SequenceNumber, Keys.DstPanID, Keys.DstAddress, Keys.SrcPanID, Keys.SrcAddress, Keys.Payload} {
		if _, ok := m[k]; ok {
			t.Fatalf("unexpected key %v", k)
		}
	}
	if m[Keys.FrameType] != "ack" || m[Keys.HeaderLen] != 2 {
		t.Fatalf("unexpected map %+v", m)
	}
}

func TestParseBad(t *testing.T) {
	if _, err := Parse(nil); err != EmptyOrNilFrame {
		t.Fatalf("exp EmptyOrNilFrame, got %v", err)
	}

	_, err := Parse([]byte{0x41})
	if !errors.Is(err, dot15d4.ErrBufferTooShort) {
		t.Fatalf("exp ErrBufferTooShort, got %v", err)
	}

	// addressing fields cut short
	_, err = Parse([]byte{0x41, 0xd8, 0x01, 0x34})
	if !errors.Is(err, dot15d4.ErrTruncated) {
		t.Fatalf("exp ErrTruncated, got %v", err)
	}

	// a strict mode request is overridden
	_, err = Parse([]byte{0x41, 0xd8, 0x01, 0x34}, dot15d4.OptParseMode(dot15d4.ModeStrict))
	if !errors.Is(err, dot15d4.ErrTruncated) {
		t.Fatalf("exp ErrTruncated, got %v", err)
	}
}

func TestParseNestedRegion(t *testing.T) {
	p := testRegion{}
	p.addShort(ie.TschSynchronization, []byte{0x0a, 0x00, 0x00, 0x00, 0x00, 0x01})
	p.addShort(ie.TschTimeslot, []byte{0x00})
	p.addShort(ie.LinkMargin, []byte{0x11, 0x22})
	p.addLong(ie.ChannelHopping, []byte{0x03})

	out, err := ParseNestedRegion(p.bytes())
	if err != nil {
		t.Fatalf("decode error %v", err)
	}
	t.Logf("%+v", out)

	if len(out) != 4 {
		t.Fatalf("exp 4 elements, got %v", len(out))
	}

	sync, ok := out[0][Keys.Content].(ie.SynchronizationRepr)
	if !ok {
		t.Fatalf("wrong type %v", reflect.TypeOf(out[0][Keys.Content]))
	}
	if sync.AbsoluteSlotNumber != 10 || sync.JoinMetric != 1 {
		t.Fatalf("sync mismatch %+v", sync)
	}

	if _, ok := out[1][Keys.Content].(ie.TimeslotRepr); !ok {
		t.Fatalf("wrong type %v", reflect.TypeOf(out[1][Keys.Content]))
	}

	// no decoder: raw content only
	if _, ok := out[2][Keys.Content]; ok {
		t.Fatalf("unexpected content for %v", out[2][Keys.SubID])
	}
	if !reflect.DeepEqual(out[2][Keys.Raw], []byte{0x11, 0x22}) {
		t.Fatalf("raw mismatch %v", out[2][Keys.Raw])
	}

	if out[3][Keys.Long] != true || out[3][Keys.SubID] != "Channel Hopping" {
		t.Fatalf("unexpected long element %+v", out[3])
	}
	if !reflect.DeepEqual(out[3][Keys.Content], ie.ChannelHoppingRepr{HoppingSequenceID: 3}) {
		t.Fatalf("channel hopping mismatch %+v", out[3][Keys.Content])
	}
}

func TestParseNestedRegionBad(t *testing.T) {
	if _, err := ParseNestedRegion(nil); err != EmptyOrNilFrame {
		t.Fatalf("exp EmptyOrNilFrame, got %v", err)
	}

	// corrupt length: +32 past the end
	p := testRegion{}
	p.addShort(ie.TschTimeslot, []byte{0x00})
	p.addBad(0x21, 0x1a, []byte{0x00})

	out, err := ParseNestedRegion(p.bytes())
	if !errors.Is(err, dot15d4.ErrTruncated) {
		t.Fatalf("exp ErrTruncated, got %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("exp the first element to survive, got %v", len(out))
	}

	// element fits but its content is short for the decoder
	p = testRegion{}
	p.addShort(ie.TschSynchronization, []byte{0x01, 0x02})
	_, err = ParseNestedRegion(p.bytes())
	if !errors.Is(err, dot15d4.ErrTruncated) {
		t.Fatalf("exp ErrTruncated, got %v", err)
	}
}
