package sniffer

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"
	"time"

	"github.com/rigado/dot15d4"
	"github.com/rigado/dot15d4/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dataFrame = []byte{
	0x41, 0xd8, 0x2a,
	0x34, 0x12,
	0xff, 0xff,
	0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	0xde, 0xad,
	0x12, 0x34, // fcs
}

func phr(psdu []byte) []byte {
	return append([]byte{byte(len(psdu))}, psdu...)
}

func TestSnifferEOF(t *testing.T) {
	var stream []byte
	stream = append(stream, phr(dataFrame)...)
	stream = append(stream, 0xff, 0xff)
	stream = append(stream, phr([]byte{0x02, 0x21, 0x00, 0x00})...)

	s := New(ioutil.NopCloser(bytes.NewReader(stream)))

	var got []Frame
	for f := range s.Frames() {
		got = append(got, f)
	}
	require.NoError(t, s.Close())

	require.Len(t, got, 2)
	assert.Equal(t, dataFrame, got[0].PSDU)
	assert.Equal(t, dataFrame[:len(dataFrame)-2], got[0].MPDU())
	assert.False(t, got[0].Received.IsZero())

	h, err := got[0].Header()
	require.NoError(t, err)
	assert.Equal(t, frame.FrameTypeData, h.FrameControl.FrameType)
	assert.Equal(t, dot15d4.Broadcast, h.Addressing.DstAddress)

	h, err = got[1].Header()
	require.NoError(t, err)
	assert.Equal(t, frame.FrameTypeAck, h.FrameControl.FrameType)
	assert.Nil(t, h.SequenceNumber)
}

func TestSnifferClose(t *testing.T) {
	pr, pw := io.Pipe()
	s := New(pr)

	go func() {
		_, _ = pw.Write(phr(dataFrame))
	}()

	select {
	case f := <-s.Frames():
		assert.Equal(t, dataFrame, f.PSDU)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame")
	}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, ok := <-s.Frames()
	assert.False(t, ok)
}

func TestFrameFCS(t *testing.T) {
	assert.False(t, Frame{PSDU: dataFrame}.FCSValid())

	psdu := frame.AppendFCS(append([]byte{}, dataFrame[:len(dataFrame)-2]...))
	assert.True(t, Frame{PSDU: psdu}.FCSValid())
}

func TestFrameTruncatedHeader(t *testing.T) {
	f := Frame{PSDU: []byte{0x41, 0xd8, 0x2a, 0x34, 0x00, 0x00}}
	_, err := f.Header()
	assert.Error(t, err)

	assert.Nil(t, Frame{PSDU: []byte{0x01}}.MPDU())
}
