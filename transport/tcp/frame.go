package tcp

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	lenSize = 4

	// MaxFrameSize caps a single encoded value on the wire.
	MaxFrameSize = 64 << 20
)

// Frames are a 4-byte big-endian payload length followed by the payload.
// One frame carries exactly one encoded value; there is no other envelope
// metadata.

func writeFrame(w io.Writer, p []byte) error {
	if len(p) > MaxFrameSize {
		return errors.Errorf("frame too large: %d bytes (max %d)", len(p), MaxFrameSize)
	}

	buf := make([]byte, lenSize+len(p))
	binary.BigEndian.PutUint32(buf, uint32(len(p)))
	copy(buf[lenSize:], p)

	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [lenSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, errors.Errorf("frame too large: %d bytes (max %d)", n, MaxFrameSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
