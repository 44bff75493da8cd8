package frame

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

// FCSLen is the size of the frame check sequence trailing every MPDU.
const FCSLen = 2

// The 802.15.4 FCS is the ITU-T CRC-16 with reflected input and output,
// zero initial value and no final XOR.
var fcsTable = crc16.MakeTable(crc16.CRC16_KERMIT)

// FCS computes the frame check sequence over mpdu.
func FCS(mpdu []byte) uint16 {
	return crc16.Checksum(mpdu, fcsTable)
}

// AppendFCS appends the FCS of mpdu, low octet first.
func AppendFCS(mpdu []byte) []byte {
	var b [FCSLen]byte
	binary.LittleEndian.PutUint16(b[:], FCS(mpdu))
	return append(mpdu, b[:]...)
}

// CheckFCS reports whether the trailing two octets of psdu match the FCS of
// the octets before them.
func CheckFCS(psdu []byte) bool {
	if len(psdu) < FCSLen {
		return false
	}
	n := len(psdu) - FCSLen
	return binary.LittleEndian.Uint16(psdu[n:]) == FCS(psdu[:n])
}
