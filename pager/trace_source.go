package pager

import (
	"errors"
	"io"
	"log/slog"
)

// TraceSource yields the raw bytes of a trace
type TraceSource interface {
	// Name identifies the source in logs and errors
	Name() string

	// Open returns a fresh stream over the trace
	Open() (io.ReadCloser, error)
}

// FileSource reads a trace from disk. Regular files are memory-mapped
// where the platform supports it.
type FileSource struct {
	Path string
}

// Name returns the file path
func (s FileSource) Name() string {
	return s.Path
}

// Open opens the file
func (s FileSource) Open() (io.ReadCloser, error) {
	rc, err := openMapped(s.Path)
	if err != nil {
		return nil, ErrTraceUnreadable("Open", s.Path, err)
	}
	return rc, nil
}

// ReaderSource serves a trace from an in-memory or streamed reader.
// It can be opened once.
type ReaderSource struct {
	Label  string
	Reader io.Reader
}

// Name returns the label, or "reader"
func (s ReaderSource) Name() string {
	if s.Label == "" {
		return "reader"
	}
	return s.Label
}

// Open returns the wrapped reader
func (s ReaderSource) Open() (io.ReadCloser, error) {
	if s.Reader == nil {
		return nil, ErrTraceUnreadable("Open", s.Name(), io.ErrUnexpectedEOF)
	}
	return io.NopCloser(s.Reader), nil
}

// LoadTraceFrom opens src, decompresses it when needed and parses it.
// Any open or read failure is fatal and carries ErrCodeTraceUnreadable.
func LoadTraceFrom(src TraceSource, logger *slog.Logger) (*Trace, error) {
	if logger == nil {
		logger = discardLogger()
	}

	rc, err := src.Open()
	if err != nil {
		if IsErrorCode(err, ErrCodeTraceUnreadable) {
			return nil, err
		}
		return nil, ErrTraceUnreadable("LoadTraceFrom", src.Name(), err)
	}
	defer rc.Close()

	r, codec, err := NewTraceReader(rc)
	if err != nil {
		return nil, ErrTraceUnreadable("LoadTraceFrom", src.Name(), err)
	}
	if codec != CodecNone {
		logger.Debug("decompressing trace", "source", src.Name(), "codec", codec.String())
	}

	trace, err := LoadTrace(r, logger)
	if err != nil {
		// Keep the stream error but name the source
		return nil, ErrTraceUnreadable("LoadTraceFrom", src.Name(), errors.Unwrap(err))
	}

	return trace, nil
}
