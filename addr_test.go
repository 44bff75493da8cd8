package dot15d4

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressingModeFromCode(t *testing.T) {
	want := []AddressingMode{AddressingModeAbsent, AddressingModeUnknown, AddressingModeShort, AddressingModeExtended}
	for code, m := range want {
		assert.Equal(t, m, AddressingModeFromCode(uint8(code)))
		assert.Equal(t, uint8(code), uint8(m))
	}
	assert.Equal(t, []int{0, 0, 2, 8}, []int{
		AddressingModeAbsent.Size(), AddressingModeUnknown.Size(),
		AddressingModeShort.Size(), AddressingModeExtended.Size(),
	})
}

func TestBroadcast(t *testing.T) {
	assert.True(t, Broadcast.IsBroadcast())
	assert.False(t, Broadcast.IsUnicast())

	a := ShortAddress([2]byte{0xff, 0xfe})
	assert.False(t, a.IsBroadcast())
	assert.True(t, a.IsUnicast())

	assert.False(t, ExtendedAddress([8]byte{0xff, 0xff}).IsBroadcast())
}

func TestAddressFromBytes(t *testing.T) {
	for _, b := range [][]byte{
		{},
		{0x12, 0x34},
		{1, 2, 3, 4, 5, 6, 7, 8},
	} {
		a := AddressFromBytes(b)
		assert.Equal(t, len(b), a.Len())
		assert.Equal(t, b, a.Bytes())
	}

	assert.True(t, AddressFromBytes(nil).IsAbsent())
	assert.Equal(t, AddressingModeExtended, AddressFromBytes(make([]byte, 8)).Mode())

	for _, n := range []int{1, 3, 7, 9} {
		assert.Panics(t, func() { AddressFromBytes(make([]byte, n)) }, "len %d", n)

		_, err := ParseAddress(make([]byte, n))
		assert.True(t, errors.Is(err, ErrInvalidAddressLength), "%v", err)
	}
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "absent", AbsentAddress.String())
	assert.Equal(t, "ff:ff", Broadcast.String())
	assert.Equal(t, "01:02:03:04:05:06:07:08", ExtendedAddress([8]byte{1, 2, 3, 4, 5, 6, 7, 8}).String())
}

func TestAddressText(t *testing.T) {
	for _, a := range []Address{
		AbsentAddress,
		ShortAddress([2]byte{0xbe, 0xef}),
		ExtendedAddress([8]byte{0xde, 0xad, 0xbe, 0xef, 0, 1, 2, 3}),
	} {
		text, err := a.MarshalText()
		require.NoError(t, err)

		var got Address
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, a, got)
	}

	var a Address
	assert.Error(t, a.UnmarshalText([]byte("zz:zz")))
	assert.Error(t, a.UnmarshalText([]byte("01:02:03")))
	require.NoError(t, a.UnmarshalText([]byte("BE:EF")))
	assert.Equal(t, ShortAddress([2]byte{0xbe, 0xef}), a)
}
