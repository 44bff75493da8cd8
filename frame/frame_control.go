// Package frame reads and writes the IEEE 802.15.4 MAC header fields that
// precede the information elements: Frame Control, Sequence Number and the
// Addressing Fields.
//
// All views are non-owning windows over a caller-supplied buffer. A view used
// for writing must be the only view over its bytes for as long as it is used.
package frame

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
)

// FrameControlLen is the size of the Frame Control field in octets.
const FrameControlLen = 2

// FrameType is the 3-bit frame type.
type FrameType uint8

const (
	FrameTypeBeacon         FrameType = 0b000
	FrameTypeData           FrameType = 0b001
	FrameTypeAck            FrameType = 0b010
	FrameTypeMacCommand     FrameType = 0b011
	FrameTypeMultipurpose   FrameType = 0b101
	FrameTypeFragmentOrFrak FrameType = 0b110
	FrameTypeExtended       FrameType = 0b111

	// FrameTypeUnknown holds the reserved code 0b100.
	FrameTypeUnknown FrameType = 0b100
)

// FrameTypeFromCode maps a 3-bit code to a FrameType.
func FrameTypeFromCode(code uint8) FrameType {
	switch ft := FrameType(code & 0b111); ft {
	case FrameTypeBeacon, FrameTypeData, FrameTypeAck, FrameTypeMacCommand,
		FrameTypeMultipurpose, FrameTypeFragmentOrFrak, FrameTypeExtended:
		return ft
	}
	return FrameTypeUnknown
}

func (t FrameType) String() string {
	switch t {
	case FrameTypeBeacon:
		return "beacon"
	case FrameTypeData:
		return "data"
	case FrameTypeAck:
		return "ack"
	case FrameTypeMacCommand:
		return "mac-command"
	case FrameTypeMultipurpose:
		return "multipurpose"
	case FrameTypeFragmentOrFrak:
		return "fragment-or-frak"
	case FrameTypeExtended:
		return "extended"
	}
	return "unknown"
}

// FrameVersion is the 2-bit frame version.
type FrameVersion uint8

const (
	FrameVersion2003 FrameVersion = 0b00
	FrameVersion2006 FrameVersion = 0b01
	FrameVersion2020 FrameVersion = 0b10

	// FrameVersionIeee802154 is the version used by 802.15.4-2015 and later.
	FrameVersionIeee802154 = FrameVersion2020

	// FrameVersionUnknown holds the reserved code 0b11.
	FrameVersionUnknown FrameVersion = 0b11
)

// FrameVersionFromCode maps a 2-bit code to a FrameVersion. Every code is
// a member; 0b11 is the reserved one.
func FrameVersionFromCode(code uint8) FrameVersion {
	return FrameVersion(code & 0b11)
}

func (v FrameVersion) String() string {
	switch v {
	case FrameVersion2003:
		return "2003"
	case FrameVersion2006:
		return "2006"
	case FrameVersion2020:
		return "2020"
	}
	return "unknown"
}

// Bit layout of the Frame Control field.
const (
	shiftFrameType     = 0
	shiftSecurity      = 3
	shiftFramePending  = 4
	shiftAckRequest    = 5
	shiftPanIDCompress = 6
	shiftSeqSuppress   = 8
	shiftIEPresent     = 9
	shiftDstMode       = 10
	shiftVersion       = 12
	shiftSrcMode       = 14

	maskFrameType = 0b111
	maskMode      = 0b11
	maskVersion   = 0b11
)

// FrameControl is a reader/writer over the first two bytes of a frame.
type FrameControl struct {
	b []byte
}

// NewFrameControl returns a FrameControl over buf. An error is returned if
// buf is shorter than two bytes.
func NewFrameControl(buf []byte) (FrameControl, error) {
	if len(buf) < FrameControlLen {
		return FrameControl{}, errors.Wrapf(dot15d4.ErrBufferTooShort, "frame control: have %d bytes", len(buf))
	}
	return FrameControl{b: buf}, nil
}

// NewFrameControlUnchecked returns a FrameControl over buf without checking
// its length. The caller asserts len(buf) >= 2.
func NewFrameControlUnchecked(buf []byte) FrameControl {
	return FrameControl{b: buf}
}

// RawData returns the buffer the view was created with.
func (fc FrameControl) RawData() []byte { return fc.b }

// Raw returns the Frame Control field as a host-order word.
func (fc FrameControl) Raw() uint16 {
	return binary.LittleEndian.Uint16(fc.b[:FrameControlLen])
}

func (fc FrameControl) setRaw(v uint16) {
	binary.LittleEndian.PutUint16(fc.b[:FrameControlLen], v)
}

func (fc FrameControl) bit(shift uint) bool {
	return (fc.Raw()>>shift)&1 == 1
}

func (fc FrameControl) setBit(shift uint, on bool) {
	fc.setField(shift, 1, boolBit(on))
}

func (fc FrameControl) field(shift uint, mask uint16) uint8 {
	return uint8((fc.Raw() >> shift) & mask)
}

func (fc FrameControl) setField(shift uint, mask uint16, v uint16) {
	raw := fc.Raw()
	raw = (raw &^ (mask << shift)) | ((v & mask) << shift)
	fc.setRaw(raw)
}

func boolBit(on bool) uint16 {
	if on {
		return 1
	}
	return 0
}

func (fc FrameControl) FrameType() FrameType {
	return FrameTypeFromCode(fc.field(shiftFrameType, maskFrameType))
}

func (fc FrameControl) SecurityEnabled() bool { return fc.bit(shiftSecurity) }

func (fc FrameControl) FramePending() bool { return fc.bit(shiftFramePending) }

func (fc FrameControl) AckRequest() bool { return fc.bit(shiftAckRequest) }

func (fc FrameControl) PanIDCompression() bool { return fc.bit(shiftPanIDCompress) }

func (fc FrameControl) SequenceNumberSuppression() bool { return fc.bit(shiftSeqSuppress) }

func (fc FrameControl) InformationElementsPresent() bool { return fc.bit(shiftIEPresent) }

func (fc FrameControl) DstAddressingMode() dot15d4.AddressingMode {
	return dot15d4.AddressingModeFromCode(fc.field(shiftDstMode, maskMode))
}

func (fc FrameControl) FrameVersion() FrameVersion {
	return FrameVersionFromCode(fc.field(shiftVersion, maskVersion))
}

func (fc FrameControl) SrcAddressingMode() dot15d4.AddressingMode {
	return dot15d4.AddressingModeFromCode(fc.field(shiftSrcMode, maskMode))
}

// SetFrameType sets the frame type. The value is masked to 3 bits.
func (fc FrameControl) SetFrameType(t FrameType) {
	fc.setField(shiftFrameType, maskFrameType, uint16(t))
}

func (fc FrameControl) SetSecurityEnabled(on bool) { fc.setBit(shiftSecurity, on) }

func (fc FrameControl) SetFramePending(on bool) { fc.setBit(shiftFramePending, on) }

func (fc FrameControl) SetAckRequest(on bool) { fc.setBit(shiftAckRequest, on) }

func (fc FrameControl) SetPanIDCompression(on bool) { fc.setBit(shiftPanIDCompress, on) }

func (fc FrameControl) SetSequenceNumberSuppression(on bool) { fc.setBit(shiftSeqSuppress, on) }

func (fc FrameControl) SetInformationElementsPresent(on bool) { fc.setBit(shiftIEPresent, on) }

// SetDstAddressingMode sets the destination addressing mode, masked to 2 bits.
func (fc FrameControl) SetDstAddressingMode(m dot15d4.AddressingMode) {
	fc.setField(shiftDstMode, maskMode, uint16(m))
}

// SetFrameVersion sets the frame version, masked to 2 bits.
func (fc FrameControl) SetFrameVersion(v FrameVersion) {
	fc.setField(shiftVersion, maskVersion, uint16(v))
}

// SetSrcAddressingMode sets the source addressing mode, masked to 2 bits.
func (fc FrameControl) SetSrcAddressingMode(m dot15d4.AddressingMode) {
	fc.setField(shiftSrcMode, maskMode, uint16(m))
}

func (fc FrameControl) String() string {
	var flags []string
	if fc.SecurityEnabled() {
		flags = append(flags, "security")
	}
	if fc.FramePending() {
		flags = append(flags, "pending")
	}
	if fc.AckRequest() {
		flags = append(flags, "ack-req")
	}
	if fc.PanIDCompression() {
		flags = append(flags, "pan-id-comp")
	}
	if fc.SequenceNumberSuppression() {
		flags = append(flags, "seq-suppr")
	}
	if fc.InformationElementsPresent() {
		flags = append(flags, "ie")
	}

	return fmt.Sprintf("%s v%s dst=%s src=%s [%s]",
		fc.FrameType(), fc.FrameVersion(),
		fc.DstAddressingMode(), fc.SrcAddressingMode(),
		strings.Join(flags, ","))
}

// FrameControlRepr is an owned snapshot of the Frame Control field.
type FrameControlRepr struct {
	FrameType                  FrameType              `json:"frameType"`
	SecurityEnabled            bool                   `json:"securityEnabled"`
	FramePending               bool                   `json:"framePending"`
	AckRequest                 bool                   `json:"ackRequest"`
	PanIDCompression           bool                   `json:"panIdCompression"`
	SequenceNumberSuppression  bool                   `json:"sequenceNumberSuppression"`
	InformationElementsPresent bool                   `json:"informationElementsPresent"`
	DstAddressingMode          dot15d4.AddressingMode `json:"dstAddressingMode"`
	FrameVersion               FrameVersion           `json:"frameVersion"`
	SrcAddressingMode          dot15d4.AddressingMode `json:"srcAddressingMode"`
}

// ParseFrameControl snapshots fc.
func ParseFrameControl(fc FrameControl) FrameControlRepr {
	return FrameControlRepr{
		FrameType:                  fc.FrameType(),
		SecurityEnabled:            fc.SecurityEnabled(),
		FramePending:               fc.FramePending(),
		AckRequest:                 fc.AckRequest(),
		PanIDCompression:           fc.PanIDCompression(),
		SequenceNumberSuppression:  fc.SequenceNumberSuppression(),
		InformationElementsPresent: fc.InformationElementsPresent(),
		DstAddressingMode:          fc.DstAddressingMode(),
		FrameVersion:               fc.FrameVersion(),
		SrcAddressingMode:          fc.SrcAddressingMode(),
	}
}

// Emit writes every field of r into fc.
func (r FrameControlRepr) Emit(fc FrameControl) {
	fc.SetFrameType(r.FrameType)
	fc.SetSecurityEnabled(r.SecurityEnabled)
	fc.SetFramePending(r.FramePending)
	fc.SetAckRequest(r.AckRequest)
	fc.SetPanIDCompression(r.PanIDCompression)
	fc.SetSequenceNumberSuppression(r.SequenceNumberSuppression)
	fc.SetInformationElementsPresent(r.InformationElementsPresent)
	fc.SetDstAddressingMode(r.DstAddressingMode)
	fc.SetFrameVersion(r.FrameVersion)
	fc.SetSrcAddressingMode(r.SrcAddressingMode)
}
