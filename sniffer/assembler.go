package sniffer

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// MaxPSDULen is aMaxPhyPacketSize.
	MaxPSDULen = 127

	phrLen     = 1
	phrLenMask = 0x7f

	// smallest PSDU worth reporting: frame control plus FCS
	minPSDULen = 4

	defaultReassemblyTimeout = 500 * time.Millisecond
)

var errNoStart = errors.New("no PHR in chunk")

// assembler rebuilds PSDUs from a byte stream of PHR length octets each
// followed by the PSDU. A partial PSDU older than timeout is dropped.
type assembler struct {
	b       []byte
	timeout time.Duration
	started time.Time
	out     chan<- []byte
	now     func() time.Time
}

func newAssembler(c chan<- []byte, timeout time.Duration) *assembler {
	a := &assembler{
		b:       make([]byte, 0, phrLen+MaxPSDULen),
		timeout: timeout,
		out:     c,
		now:     time.Now,
	}

	return a
}

func (a *assembler) Assemble(b []byte) {
	switch {
	case len(b) == 0:
		return

	case len(a.b) != 0 && a.now().Sub(a.started) > a.timeout:
		// stale partial frame
		a.reset()
	}

	if len(a.b) == 0 {
		rest, err := a.waitStart(b)
		if err != nil {
			return
		}
		b = rest
	}

	need := a.frameLen() - len(a.b)
	if len(b) < need {
		a.b = append(a.b, b...)
		return
	}

	a.b = append(a.b, b[:need]...)
	psdu := make([]byte, len(a.b)-phrLen)
	copy(psdu, a.b[phrLen:])
	a.out <- psdu
	a.reset()

	if len(b) > need {
		a.Assemble(b[need:])
	}
}

func (a *assembler) reset() {
	a.b = a.b[:0]
	a.started = time.Time{}
}

// waitStart skips octets that cannot be a PHR and starts a frame at the
// first one that can.
func (a *assembler) waitStart(b []byte) ([]byte, error) {
	for i, v := range b {
		if v&^phrLenMask != 0 || int(v) < minPSDULen {
			continue
		}

		a.b = append(a.b, v)
		a.started = a.now()
		return b[i+1:], nil
	}

	return nil, errNoStart
}

func (a *assembler) frameLen() int {
	return phrLen + int(a.b[0]&phrLenMask)
}
