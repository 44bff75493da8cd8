package dot15d4

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// AddressingMode is the 2-bit addressing mode carried in the Frame Control field.
type AddressingMode uint8

const (
	AddressingModeAbsent   AddressingMode = 0b00
	AddressingModeShort    AddressingMode = 0b10
	AddressingModeExtended AddressingMode = 0b11

	// AddressingModeUnknown holds the reserved code 0b01.
	AddressingModeUnknown AddressingMode = 0b01
)

// AddressingModeFromCode maps a 2-bit code to an AddressingMode.
// Bits above the low two are ignored.
func AddressingModeFromCode(code uint8) AddressingMode {
	switch code & 0b11 {
	case 0b00:
		return AddressingModeAbsent
	case 0b10:
		return AddressingModeShort
	case 0b11:
		return AddressingModeExtended
	default:
		return AddressingModeUnknown
	}
}

// Size returns the size of an address in this mode, in octets.
func (m AddressingMode) Size() int {
	switch m {
	case AddressingModeShort:
		return 2
	case AddressingModeExtended:
		return 8
	default:
		return 0
	}
}

func (m AddressingMode) String() string {
	switch m {
	case AddressingModeAbsent:
		return "absent"
	case AddressingModeShort:
		return "short"
	case AddressingModeExtended:
		return "extended"
	default:
		return "unknown"
	}
}

// Address is an IEEE 802.15.4 address: absent, short (2 octets) or
// extended (8 octets). Addresses are comparable with ==.
type Address struct {
	mode AddressingMode
	b    [8]byte
}

// AbsentAddress is the zero Address.
var AbsentAddress = Address{}

// Broadcast is the short broadcast address ff:ff.
var Broadcast = ShortAddress([2]byte{0xff, 0xff})

// ShortAddress returns a short Address.
func ShortAddress(a [2]byte) Address {
	addr := Address{mode: AddressingModeShort}
	copy(addr.b[:], a[:])
	return addr
}

// ExtendedAddress returns an extended Address.
func ExtendedAddress(a [8]byte) Address {
	return Address{mode: AddressingModeExtended, b: a}
}

// AddressFromBytes builds an Address from 0, 2 or 8 bytes.
//
// Any other length is a programming error and panics; callers holding
// untrusted input should use ParseAddress.
func AddressFromBytes(b []byte) Address {
	a, err := ParseAddress(b)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAddress builds an Address from 0, 2 or 8 bytes.
func ParseAddress(b []byte) (Address, error) {
	switch len(b) {
	case 0:
		return AbsentAddress, nil
	case 2:
		return ShortAddress([2]byte{b[0], b[1]}), nil
	case 8:
		var a [8]byte
		copy(a[:], b)
		return ExtendedAddress(a), nil
	}
	return AbsentAddress, errors.Wrapf(ErrInvalidAddressLength, "have %d bytes", len(b))
}

// Mode returns the addressing mode matching the address width.
func (a Address) Mode() AddressingMode {
	return a.mode
}

// Len returns the address length in octets (0, 2 or 8).
func (a Address) Len() int {
	return a.mode.Size()
}

// IsAbsent reports whether the address carries no octets.
func (a Address) IsAbsent() bool {
	return a.mode == AddressingModeAbsent
}

// IsBroadcast reports whether a is the broadcast address.
func (a Address) IsBroadcast() bool {
	return a == Broadcast
}

// IsUnicast reports whether a is not the broadcast address.
func (a Address) IsUnicast() bool {
	return !a.IsBroadcast()
}

// Bytes returns a copy of the address octets.
func (a Address) Bytes() []byte {
	out := make([]byte, a.Len())
	copy(out, a.b[:a.Len()])
	return out
}

func (a Address) String() string {
	if a.IsAbsent() {
		return "absent"
	}

	parts := make([]string, a.Len())
	for i := range parts {
		parts[i] = fmt.Sprintf("%02x", a.b[i])
	}
	return strings.Join(parts, ":")
}

// MarshalText encodes the address in its String form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes the String form of an address.
func (a *Address) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	if s == "absent" || s == "" {
		*a = AbsentAddress
		return nil
	}

	raw, err := hex.DecodeString(strings.Replace(s, ":", "", -1))
	if err != nil {
		return errors.Wrapf(err, "address %q", s)
	}

	addr, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
