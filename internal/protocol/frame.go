// Package protocol defines what crosses the wire between a session host
// and its participants: length-prefixed frames carrying JSON messages.
// Every frame is a 4-byte big-endian payload length followed by exactly
// that many bytes, so readers never depend on TCP segment boundaries.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame's payload. The length field is read
// before any allocation, so a hostile header cannot make us reserve 4GiB.
const MaxFrameSize = 64 * 1024

var (
	// ErrMalformedFrame marks frames that violate the wire format. The
	// transport drops only the offending connection, never the session.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrFrameTooLarge marks frames whose declared payload exceeds
	// MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")
)

// WriteFrame writes one length-prefixed frame. Header and payload go out
// in a single Write so concurrent framers on the same lock never
// interleave partial frames.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one length-prefixed frame. A connection closed cleanly
// between frames returns io.EOF; one cut mid-frame returns
// ErrMalformedFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrMalformedFrame)
		}
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: truncated payload", ErrMalformedFrame)
	}
	return payload, nil
}
