package serialmux

import (
	"go.bug.st/serial"
)

// openSerialPort opens a real port via go.bug.st/serial. Indirected so tests
// can exercise Open without hardware attached.
var openSerialPort = func(path string, mode *serial.Mode) (SerialPorter, error) {
	return serial.Open(path, mode)
}
