package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// lengthPrefixSize is the byte width of the length prefix TCP frames carry
// ahead of the operation model's own 5-byte header (§11.3). UDP needs no
// equivalent: ReadFromUDP always returns exactly one whole datagram, so the
// operation-model frame boundary and the UDP packet boundary coincide.
const lengthPrefixSize = 4

// WriteTCPFrame writes a length-prefixed operation frame to conn.
func WriteTCPFrame(w io.Writer, frame []byte) error {
	var lenBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("transport: write length prefix: %w", err)
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

// ReadTCPFrame reads one length-prefixed operation frame from r.
func ReadTCPFrame(r io.Reader) ([]byte, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, fmt.Errorf("transport: read frame body: %w", err)
	}
	return frame, nil
}
