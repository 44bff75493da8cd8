// Package sniffer reads raw IEEE 802.15.4 PSDUs from a sniffer dongle.
package sniffer

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/dot15d4"
	"github.com/rigado/dot15d4/frame"
)

const rxQueueSize = 64

// Frame is one captured PSDU.
type Frame struct {
	Received time.Time
	PSDU     []byte
}

// MPDU returns the PSDU without its FCS.
func (f Frame) MPDU() []byte {
	if len(f.PSDU) < frame.FCSLen {
		return nil
	}
	return f.PSDU[:len(f.PSDU)-frame.FCSLen]
}

// FCSValid reports whether the captured FCS matches the MPDU.
func (f Frame) FCSValid() bool {
	return frame.CheckFCS(f.PSDU)
}

// Header decodes the MAC header of the captured frame. Captures are
// untrusted input, so parsing is always recoverable.
func (f Frame) Header(opts ...dot15d4.Option) (frame.Header, error) {
	opts = append(opts, dot15d4.OptParseMode(dot15d4.ModeRecoverable))
	return frame.ParseHeader(f.MPDU(), opts...)
}

type Sniffer struct {
	src    io.ReadCloser
	logger dot15d4.Logger

	psdus  chan []byte
	frames chan Frame

	done chan struct{}
	wg   sync.WaitGroup
	cmu  sync.Mutex
}

// New starts reading src. Frames are delivered until src fails or Close is
// called.
func New(src io.ReadCloser, opts ...dot15d4.Option) *Sniffer {
	o := dot15d4.NewOptions(opts...)

	s := &Sniffer{
		src:    src,
		logger: o.Logger.ChildLogger(map[string]interface{}{"component": "sniffer"}),
		psdus:  make(chan []byte, rxQueueSize),
		frames: make(chan Frame, rxQueueSize),
		done:   make(chan struct{}),
	}

	s.wg.Add(2)
	go s.rxLoop()
	go s.stamp()

	return s
}

// Frames returns the channel of captured frames. It is closed once the
// sniffer stops.
func (s *Sniffer) Frames() <-chan Frame {
	return s.frames
}

func (s *Sniffer) Close() error {
	s.cmu.Lock()
	defer s.cmu.Unlock()

	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	err := s.src.Close()
	s.wg.Wait()
	return errors.Wrap(err, "can't close sniffer source")
}

func (s *Sniffer) isOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Sniffer) rxLoop() {
	defer s.wg.Done()
	defer close(s.psdus)

	a := newAssembler(s.psdus, defaultReassemblyTimeout)
	tmp := make([]byte, 512)
	for s.isOpen() {
		n, err := s.src.Read(tmp)
		if n > 0 {
			a.Assemble(tmp[:n])
		}
		if err == io.EOF {
			s.logger.Debug("source closed")
			return
		}
		if err != nil {
			if s.isOpen() {
				s.logger.Errorf("read: %v", err)
			}
			return
		}
	}
}

func (s *Sniffer) stamp() {
	defer s.wg.Done()
	defer close(s.frames)

	for p := range s.psdus {
		f := Frame{Received: time.Now(), PSDU: p}
		s.logger.Debugf("psdu [% 0x]", p)
		select {
		case s.frames <- f:
		case <-s.done:
			// drain so rxLoop is never blocked on a full queue
			for range s.psdus {
			}
			return
		}
	}
}
