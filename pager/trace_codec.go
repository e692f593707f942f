package pager

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// TraceCodec identifies how a trace stream is compressed
type TraceCodec uint8

const (
	CodecNone   TraceCodec = 0
	CodecLZ4    TraceCodec = 1
	CodecSnappy TraceCodec = 2
)

func (c TraceCodec) String() string {
	switch c {
	case CodecLZ4:
		return "lz4"
	case CodecSnappy:
		return "snappy"
	default:
		return "none"
	}
}

// Stream magic numbers:
// LZ4 frame: 0x184D2204 little endian
// Snappy framing format: stream identifier chunk 0xff 0x06 0x00 0x00 "sNaPpY"
var (
	lz4FrameMagic    = []byte{0x04, 0x22, 0x4D, 0x18}
	snappyFrameMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// DetectCodec inspects the first bytes of a stream
func DetectCodec(prefix []byte) TraceCodec {
	switch {
	case bytes.HasPrefix(prefix, lz4FrameMagic):
		return CodecLZ4
	case bytes.HasPrefix(prefix, snappyFrameMagic):
		return CodecSnappy
	default:
		return CodecNone
	}
}

// NewTraceReader wraps r so compressed traces decode transparently.
// Plain text passes through unchanged.
func NewTraceReader(r io.Reader) (io.Reader, TraceCodec, error) {
	br := bufio.NewReader(r)

	prefix, err := br.Peek(len(snappyFrameMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, CodecNone, fmt.Errorf("failed to peek trace header: %w", err)
	}

	codec := DetectCodec(prefix)
	switch codec {
	case CodecLZ4:
		return lz4.NewReader(br), codec, nil
	case CodecSnappy:
		return snappy.NewReader(br), codec, nil
	default:
		return br, codec, nil
	}
}
