package dot15d4

import "time"

// ParseMode decides how malformed input is handled by views and iterators.
type ParseMode int

const (
	// ModeStrict treats truncated input as a caller contract violation:
	// declared lengths are trusted and overruns panic.
	ModeStrict ParseMode = iota

	// ModeRecoverable validates every declared length against the buffer
	// and reports ErrTruncated instead.
	ModeRecoverable
)

func (m ParseMode) String() string {
	if m == ModeRecoverable {
		return "recoverable"
	}
	return "strict"
}

// DefaultGuardTime is the TSCH guard time used for the default timeslot
// template.
const DefaultGuardTime = 2200 * time.Microsecond

// Options configures parsing.
type Options struct {
	Mode      ParseMode
	GuardTime time.Duration
	Logger    Logger
}

// An Option is a configuration function, which configures parsing.
type Option func(*Options)

// NewOptions applies opts on top of the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{
		Mode:      ModeStrict,
		GuardTime: DefaultGuardTime,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = NopLogger()
	}
	return o
}

// Recoverable reports whether o asks for recoverable parsing.
func (o Options) Recoverable() bool {
	return o.Mode == ModeRecoverable
}

// OptParseMode selects strict or recoverable parsing.
func OptParseMode(m ParseMode) Option {
	return func(o *Options) {
		o.Mode = m
	}
}

// OptGuardTime overrides the guard time used for the default timeslot template.
func OptGuardTime(d time.Duration) Option {
	return func(o *Options) {
		o.GuardTime = d
	}
}

// OptLogger sets the logger used by the tooling packages.
func OptLogger(l Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
