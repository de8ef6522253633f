// Copyright 2025-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package radio

import (
	"bufio"
	"fmt"
	"io"
)

// Meshtastic stream framing: a two-byte magic, a big-endian 16-bit
// payload length, then a raw FromRadio/ToRadio protobuf. The device also
// writes unframed debug console text on the same stream, so the reader
// must resynchronize on the magic.
const (
	frameStart1 = 0x94
	frameStart2 = 0xC3

	// maxFrameLen is MAX_TO_FROM_RADIO_SIZE in the Meshtastic firmware.
	maxFrameLen = 512
)

// writeFrame frames one serialized ToRadio protobuf for the stream.
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameLen {
		return fmt.Errorf("frame payload %d bytes exceeds maximum %d", len(payload), maxFrameLen)
	}
	buf := make([]byte, 0, len(payload)+4)
	buf = append(buf, frameStart1, frameStart2, byte(len(payload)>>8), byte(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// frameReader scans a radio stream for framed protobufs, skipping any
// interleaved console output.
type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReaderSize(r, maxFrameLen*2)}
}

// next returns the payload of the next well-formed frame. Anything that
// is not a valid header, including a length above maxFrameLen, is treated
// as console noise and skipped. Read errors are terminal.
func (fr *frameReader) next() ([]byte, error) {
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != frameStart1 {
			continue
		}
		b, err = fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != frameStart2 {
			if b == frameStart1 {
				// Could be the real start of a frame.
				_ = fr.r.UnreadByte()
			}
			continue
		}
		hdr := make([]byte, 2)
		if _, err := io.ReadFull(fr.r, hdr); err != nil {
			return nil, err
		}
		n := int(hdr[0])<<8 | int(hdr[1])
		if n > maxFrameLen {
			continue
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(fr.r, payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
}
