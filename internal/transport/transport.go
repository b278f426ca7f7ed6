// Package transport defines the byte channel the session runs over.
//
// Ownership boundary:
// - Transport contract (blocking bulk read/write, bus speed, reset)
// - send-rate shaping
// - device discovery poll backoff
//
// Concrete USB access lives in transport/usbfs.
package transport

import "io"

// Transport is a bidirectional channel with no message framing of its own.
// Read performs one blocking inbound transfer of at most len(p) bytes.
// Write performs one blocking outbound transfer.
type Transport interface {
	io.Reader
	io.Writer

	// BusSpeed is the peer's bcdUSB, echoed in the handshake reply.
	BusSpeed() uint32

	// Reset tears the link down after a session ends or fails.
	Reset() error
}
