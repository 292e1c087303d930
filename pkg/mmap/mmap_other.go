//go:build !linux && !darwin

package mmap

import "errors"

var errUnsupported = errors.New("mmap not supported on this platform")

func mmap(fd int, offset int64, length int, prot int, flags int) ([]byte, error) {
	return nil, errUnsupported
}

func munmap(b []byte) error { return errUnsupported }

func madvise(b []byte, advice int) error { return errUnsupported }

const (
	protRead       = 0
	mapShared      = 0
	madvSequential = 0
)

const mapped = false
