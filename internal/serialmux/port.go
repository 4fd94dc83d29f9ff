package serialmux

import (
	"io"
	"time"
)

// SerialPorter is the minimal interface the mux needs from a serial port.
// The abstraction enables unit testing without real timing hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with a read timeout, implemented by
// real ports so that Close can interrupt a pending read promptly.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}
