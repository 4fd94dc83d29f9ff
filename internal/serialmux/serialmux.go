// Package serialmux owns the serial connection to the race-timing hardware.
// It is the only component that touches the open port: inbound sentences fan
// out to subscriber channels, and outbound frames (the vendor reset sequence)
// are serialized through a single write path.
package serialmux

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trackside-data/lapbridge/internal/protocol"
)

// ErrWriteFailed reports a short write to the serial port.
var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// subscriberBuffer bounds each line subscriber. The hardware worker falls a
// few lines behind while publishing to the bus; the buffer absorbs that burst
// instead of dropping lap records.
const subscriberBuffer = 64

// Mux multiplexes a single serial port to multiple line subscribers while
// serializing writes.
type Mux struct {
	port         SerialPorter
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	writeMu      sync.Mutex
	closing      bool
	closingMu    sync.Mutex

	// sleep is swapped out in tests to avoid real settle delays.
	sleep func(time.Duration)
}

// MuxInterface is the capability surface the workers consume.
type MuxInterface interface {
	// Subscribe creates a channel receiving each line read from the port.
	// The returned ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes and closes a subscriber channel.
	Unsubscribe(string)
	// SendResetFrames transmits the wake-up sequence followed by the vendor
	// reset frames, verbatim and in order.
	SendResetFrames() error
	// Monitor reads sentences from the port and fans them out until the
	// context is cancelled or the port fails.
	Monitor(ctx context.Context) error
	// Close shuts every subscriber channel and closes the port.
	Close() error
}

// New creates a Mux over an already-open port.
func New(port SerialPorter) *Mux {
	return &Mux{
		port:        port,
		subscribers: make(map[string]chan string),
		sleep:       time.Sleep,
	}
}

// Open opens the serial device at path with the given options, applies a 1s
// read timeout when the port supports it, and returns a Mux owning the port.
func Open(path string, opts PortOptions) (*Mux, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := openSerialPort(path, mode)
	if err != nil {
		return nil, err
	}

	if tp, ok := port.(TimeoutSerialPorter); ok {
		if err := tp.SetReadTimeout(time.Second); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	return New(port), nil
}

func (m *Mux) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (m *Mux) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// SendResetFrames wakes the hardware and replays the vendor reset frames. The
// write mutex keeps the sequence contiguous on the wire even if a command
// dispatch races the initial connection setup.
func (m *Mux) SendResetFrames() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.writeFrame(protocol.WakeSequence); err != nil {
		return fmt.Errorf("failed to send wake sequence: %w", err)
	}
	m.sleep(protocol.WakeSettle)

	for i, frame := range protocol.ResetFrames {
		if err := m.writeFrame(frame); err != nil {
			return fmt.Errorf("failed to send reset frame %d: %w", i+1, err)
		}
	}
	return nil
}

func (m *Mux) writeFrame(frame []byte) error {
	n, err := m.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return ErrWriteFailed
	}
	return nil
}

// silenceFilter retries the zero-byte reads an expired port read timeout
// produces while the device is silent. Without it bufio.Scanner gives up with
// io.ErrNoProgress after enough consecutive empty reads.
type silenceFilter struct {
	ctx  context.Context
	port io.Reader
}

func (f silenceFilter) Read(p []byte) (int, error) {
	for {
		n, err := f.port.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		if f.ctx.Err() != nil {
			return 0, io.EOF
		}
	}
}

// Monitor reads sentences from the serial port and sends them to subscribers.
// The blocking read runs on its own goroutine so the select loop stays
// responsive to cancellation; closing the port unblocks a pending read.
func (m *Mux) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(silenceFilter{ctx: ctx, port: m.port})

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- strings.TrimSpace(scan.Text()):
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				// Port reached EOF without a scan error.
				return scan.Err()
			}

			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- line:
				default:
					// skip a full subscriber so the read loop never stalls
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *Mux) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
