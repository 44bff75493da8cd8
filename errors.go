package dot15d4

import "github.com/pkg/errors"

var (
	// ErrBufferTooShort is returned when a buffer cannot hold a fixed-size field.
	ErrBufferTooShort = errors.New("dot15d4: buffer too short")

	// ErrTruncated is returned in recoverable mode when a declared length
	// runs past the end of the buffer.
	ErrTruncated = errors.New("dot15d4: truncated frame")

	// ErrUnrepresentable is returned when the addressing layout cannot be
	// resolved from the Frame Control field.
	ErrUnrepresentable = errors.New("dot15d4: unrepresentable addressing layout")

	// ErrUnsupported is returned for information elements without a decoder.
	ErrUnsupported = errors.New("dot15d4: unsupported information element")

	ErrInvalidAddressLength = errors.New("dot15d4: invalid address length")
	ErrContentTooLong       = errors.New("dot15d4: content too long")
	ErrFieldOverflow        = errors.New("dot15d4: value does not fit field")
)
