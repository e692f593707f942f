//go:build !unix

package pager

import (
	"fmt"
	"io"
	"os"
)

// openMapped falls back to a plain file read on platforms without mmap
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

	return file, nil
}
