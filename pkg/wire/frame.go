package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame prefixes payload with its length as a 4-byte big-endian integer.
// Every message on the network, multicast or TCP, is framed this way.
func Frame(payload []byte) []byte {
	framed := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(framed, uint32(len(payload)))
	copy(framed[4:], payload)
	return framed
}

// Unframe extracts the payload of one datagram. The length prefix must
// account for exactly the rest of the datagram; anything else is a
// malformed packet.
func Unframe(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: datagram of %d bytes", ErrShortBuffer, len(data))
	}
	n := binary.BigEndian.Uint32(data[:4])
	if n > MaxMessageSize {
		return nil, fmt.Errorf("%w: length prefix %d", ErrOversized, n)
	}
	if int(n) != len(data)-4 {
		return nil, fmt.Errorf("wire: length prefix %d disagrees with datagram size %d", n, len(data)-4)
	}
	return data[4 : 4+n], nil
}

// ReadFrame reads one length-prefixed message from a stream. Zero-length
// and oversized frames are rejected without consuming the payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n == 0 {
		return nil, fmt.Errorf("wire: zero-length frame")
	}
	if n > MaxMessageSize {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrOversized, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload with its 4-byte length prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(Frame(payload))
	return err
}
