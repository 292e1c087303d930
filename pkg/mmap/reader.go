// Package mmap provides read-only memory-mapped access to persisted
// artifacts. On platforms without mmap the file is read into memory instead,
// behind the same API.
package mmap

import (
	"fmt"
	"os"
	"sync"
)

// File is a read-only view of a whole file
type File struct {
	path   string
	data   []byte
	mapped bool

	closeOnce sync.Once
	closeErr  error
}

// Open maps path read-only and advises the kernel of sequential access.
// Empty files are valid and yield an empty view.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := stat.Size()
	if size == 0 {
		return &File{path: path}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("file %s too large to map: %d bytes", path, size)
	}

	if !mapped {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return &File{path: path, data: data}, nil
	}

	data, err := mmap(int(f.Fd()), 0, int(size), protRead, mapShared)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	// Advice failures only cost read-ahead.
	_ = madvise(data, madvSequential)

	return &File{path: path, data: data, mapped: true}, nil
}

// Bytes returns the file contents. The slice is invalid after Close.
func (f *File) Bytes() []byte { return f.data }

// Len returns the file size in bytes.
func (f *File) Len() int { return len(f.data) }

// Path returns the path the file was opened from.
func (f *File) Path() string { return f.path }

// Close unmaps the file. It is safe to call more than once.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		if f.mapped {
			f.closeErr = munmap(f.data)
		}
		f.data = nil
	})
	return f.closeErr
}
