package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/usbtotal/internal/protocol"
)

// Fixed record sizes. Message boundaries are implied by these lengths only.
const (
	HandshakeRequestLen = 8
	HandshakeReplyLen   = 16
	DescriptorHeaderLen = 16
	RangeRequestLen     = 24
)

// HandshakeRequest is the peer's opening record.
type HandshakeRequest struct {
	Magic   uint32
	Version uint32
}

// HandshakeReply is the host's answer to a valid HandshakeRequest.
type HandshakeReply struct {
	Magic     uint32
	Version   uint32
	BusSpeed  uint32
	FileCount uint32
}

// FileDescriptor announces one catalog entry.
type FileDescriptor struct {
	Size uint64
	Name string
}

// RangeRequest asks for [Offset, Offset+Length) of the current file.
type RangeRequest struct {
	Offset uint64
	Length uint64
}

// Terminator reports whether r is the (0,0) end-of-file sentinel.
func (r RangeRequest) Terminator() bool {
	return r.Offset == 0 && r.Length == 0
}

func DecodeHandshakeRequest(b []byte) (HandshakeRequest, error) {
	if len(b) < HandshakeRequestLen {
		return HandshakeRequest{}, fmt.Errorf("%w: handshake request has %d of %d bytes",
			protocol.ErrMalformedMessage, len(b), HandshakeRequestLen)
	}
	return HandshakeRequest{
		Magic:   binary.LittleEndian.Uint32(b[0:4]),
		Version: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

func EncodeHandshakeReply(r HandshakeReply) []byte {
	buf := make([]byte, HandshakeReplyLen)
	binary.LittleEndian.PutUint32(buf[0:4], r.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], r.Version)
	binary.LittleEndian.PutUint32(buf[8:12], r.BusSpeed)
	binary.LittleEndian.PutUint32(buf[12:16], r.FileCount)
	return buf
}

// EncodeFileDescriptor returns the fixed header and the raw name bytes.
// They are sent as two separate transport writes, header first.
func EncodeFileDescriptor(d FileDescriptor) ([]byte, []byte) {
	name := []byte(d.Name)
	header := make([]byte, DescriptorHeaderLen)
	binary.LittleEndian.PutUint64(header[0:8], d.Size)
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(name)))
	return header, name
}

// DecodeRangeRequest ignores the first 8 reserved bytes of the record.
func DecodeRangeRequest(b []byte) (RangeRequest, error) {
	if len(b) < RangeRequestLen {
		return RangeRequest{}, fmt.Errorf("%w: range request has %d of %d bytes",
			protocol.ErrMalformedMessage, len(b), RangeRequestLen)
	}
	return RangeRequest{
		Offset: binary.LittleEndian.Uint64(b[8:16]),
		Length: binary.LittleEndian.Uint64(b[16:24]),
	}, nil
}

func ReadHandshakeRequest(r io.Reader) (HandshakeRequest, error) {
	b, err := readRecord(r, HandshakeRequestLen)
	if err != nil {
		return HandshakeRequest{}, err
	}
	return DecodeHandshakeRequest(b)
}

func ReadRangeRequest(r io.Reader) (RangeRequest, error) {
	b, err := readRecord(r, RangeRequestLen)
	if err != nil {
		return RangeRequest{}, err
	}
	return DecodeRangeRequest(b)
}

func WriteHandshakeReply(w io.Writer, r HandshakeReply) error {
	return WritePayload(w, EncodeHandshakeReply(r))
}

func WriteFileDescriptor(w io.Writer, d FileDescriptor) error {
	header, name := EncodeFileDescriptor(d)
	if err := WritePayload(w, header); err != nil {
		return err
	}
	return WritePayload(w, name)
}

// WritePayload performs exactly one write and requires it to be accepted whole.
func WritePayload(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrTransport, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", protocol.ErrShortWrite, n, len(p))
	}
	return nil
}

// readRecord issues a single transport read. A bulk transfer carries one
// whole record, so a short result is a truncated message, not a partial one.
func readRecord(r io.Reader, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := r.Read(buf)
	if n == size {
		return buf, nil
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %w", protocol.ErrTransport, err)
	}
	return buf[:n], nil
}
