package parser

import (
	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
	"github.com/rigado/dot15d4/frame"
	"github.com/rigado/dot15d4/frame/ie"
)

var EmptyOrNilFrame = errors.New("nil/empty frame")

// Keys of the maps returned by Parse and ParseNestedRegion.
var Keys = struct {
	FrameType        string
	FrameVersion     string
	Security         string
	FramePending     string
	AckRequest       string
	PanIDCompression string
	IEPresent        string
	SequenceNumber   string
	DstPanID         string
	DstAddress       string
	SrcPanID         string
	SrcAddress       string
	HeaderLen        string
	Payload          string

	SubID   string
	Long    string
	Length  string
	Content string
	Raw     string
}{
	FrameType:        "frameType",
	FrameVersion:     "frameVersion",
	Security:         "securityEnabled",
	FramePending:     "framePending",
	AckRequest:       "ackRequest",
	PanIDCompression: "panIdCompression",
	IEPresent:        "iePresent",
	SequenceNumber:   "sequenceNumber",
	DstPanID:         "dstPanId",
	DstAddress:       "dstAddress",
	SrcPanID:         "srcPanId",
	SrcAddress:       "srcAddress",
	HeaderLen:        "headerLength",
	Payload:          "payload",

	SubID:   "subId",
	Long:    "long",
	Length:  "length",
	Content: "content",
	Raw:     "raw",
}

// Parse decodes the MAC header of a frame into a flat map. Absent fields
// are left out. Parsing is always recoverable: a short frame returns an
// error. Bytes following the addressing fields are copied under
// Keys.Payload.
func Parse(f []byte, opts ...dot15d4.Option) (map[string]interface{}, error) {
	if len(f) == 0 {
		return nil, EmptyOrNilFrame
	}

	opts = append(opts, dot15d4.OptParseMode(dot15d4.ModeRecoverable))
	o := dot15d4.NewOptions(opts...)
	h, err := frame.ParseHeader(f, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "mac header")
	}

	fc := h.FrameControl
	m := map[string]interface{}{
		Keys.FrameType:        fc.FrameType.String(),
		Keys.FrameVersion:     fc.FrameVersion.String(),
		Keys.Security:         fc.SecurityEnabled,
		Keys.FramePending:     fc.FramePending,
		Keys.AckRequest:       fc.AckRequest,
		Keys.PanIDCompression: fc.PanIDCompression,
		Keys.IEPresent:        fc.InformationElementsPresent,
		Keys.HeaderLen:        h.Len,
	}

	if h.SequenceNumber != nil {
		m[Keys.SequenceNumber] = *h.SequenceNumber
	}

	a := h.Addressing
	if a.DstPanID != nil {
		m[Keys.DstPanID] = *a.DstPanID
	}
	if !a.DstAddress.IsAbsent() {
		m[Keys.DstAddress] = a.DstAddress.String()
	}
	if a.SrcPanID != nil {
		m[Keys.SrcPanID] = *a.SrcPanID
	}
	if !a.SrcAddress.IsAbsent() {
		m[Keys.SrcAddress] = a.SrcAddress.String()
	}

	if h.Len < len(f) {
		payload := make([]byte, len(f)-h.Len)
		copy(payload, f[h.Len:])
		m[Keys.Payload] = payload
	}

	o.Logger.Debugf("parsed %s frame, header %d/%d bytes", fc.FrameType, h.Len, len(f))
	return m, nil
}

// ParseNestedRegion decodes a run of nested information elements. Elements
// without a decoder are reported with their raw content only. Parsing is
// always recoverable here: a malformed region returns the elements decoded
// so far along with the error.
func ParseNestedRegion(b []byte, opts ...dot15d4.Option) ([]map[string]interface{}, error) {
	if len(b) == 0 {
		return nil, EmptyOrNilFrame
	}

	opts = append(opts, dot15d4.OptParseMode(dot15d4.ModeRecoverable))
	o := dot15d4.NewOptions(opts...)

	out := []map[string]interface{}{}
	it := ie.NewNestedIterator(b, opts...)
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		raw := make([]byte, n.Length())
		copy(raw, n.Content())

		m := map[string]interface{}{
			Keys.SubID:  n.SubID().String(),
			Keys.Long:   n.IsLong(),
			Keys.Length: n.Length(),
			Keys.Raw:    raw,
		}

		repr, err := ie.ParseNested(n, opts...)
		switch {
		case err == nil:
			m[Keys.Content] = repr
		case errors.Is(err, dot15d4.ErrUnsupported):
			o.Logger.Debugf("no decoder for %s", n.SubID())
		default:
			return out, errors.Wrapf(err, "nested ie at offset %d", it.Offset()-n.TotalLen())
		}

		out = append(out, m)
	}

	if err := it.Err(); err != nil {
		o.Logger.Warnf("nested ie region: %v", err)
		return out, err
	}
	return out, nil
}
