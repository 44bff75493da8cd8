// Package csma holds the unslotted CSMA-CA timing constants. The backoff
// engine itself lives with the radio driver.
package csma

import "time"

const (
	// MinBE is macMinBe, the initial backoff exponent.
	MinBE = 0
	// MaxBE is macMaxBe.
	MaxBE = 8
	// MaxCSMABackoffs is macMaxCsmaBackoffs.
	MaxCSMABackoffs = 16
	// UnitBackoffPeriod is aUnitBackoffPeriod in symbols.
	UnitBackoffPeriod = 20
	// MaxFrameRetries is macMaxFrameRetries.
	MaxFrameRetries = 3
)

const (
	// SymbolPeriod is the O-QPSK 2.4 GHz symbol period.
	SymbolPeriod = 16 * time.Microsecond
	// UnitBackoffDuration is one backoff slot.
	UnitBackoffDuration = UnitBackoffPeriod * SymbolPeriod

	AckInterframeSpacing = 1 * time.Millisecond
	SIFSPeriod           = 1 * time.Millisecond
	LIFSPeriod           = 10 * time.Millisecond
)

// MaxBackoff returns the longest random backoff for exponent be, clamped to
// [MinBE, MaxBE].
func MaxBackoff(be int) time.Duration {
	if be < MinBE {
		be = MinBE
	}
	if be > MaxBE {
		be = MaxBE
	}
	return time.Duration((1<<uint(be))-1) * UnitBackoffDuration
}
