package sniffer

import (
	"io"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// SerialConfig describes the serial port a sniffer dongle is attached to.
type SerialConfig struct {
	Port     string
	BaudRate uint
}

// OpenSerial opens the sniffer port in 8N1 with short non-blocking reads.
func OpenSerial(c SerialConfig) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              c.Port,
		BaudRate:              c.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	}
	if opts.BaudRate == 0 {
		opts.BaudRate = 115200
	}

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", c.Port)
	}
	return sp, nil
}
