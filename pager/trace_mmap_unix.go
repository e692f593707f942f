//go:build unix

package pager

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// mappedTrace serves a read-only memory mapping of a trace file
type mappedTrace struct {
	*bytes.Reader
	data []byte
}

// Close unmaps the file
func (m *mappedTrace) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

// openMapped maps a regular file into memory. Pipes and devices are read
// as streams; empty files cannot be mapped and yield an empty reader.
func openMapped(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	if !info.Mode().IsRegular() {
		return file, nil
	}

	if info.Size() == 0 {
		file.Close()
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	// The mapping outlives the descriptor
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to map file: %w", err)
	}

	return &mappedTrace{Reader: bytes.NewReader(data), data: data}, nil
}
