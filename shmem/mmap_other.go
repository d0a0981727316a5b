//go:build !linux

package shmem

import "errors"

// ErrUnsupported is generated when shared memory mapping is requested on a platform without uio
var ErrUnsupported = errors.New("shared memory mapping requires linux")

// Map is not available off linux
func Map(path string, offset int64, length int) ([]byte, error) {
	return nil, ErrUnsupported
}

// Unmap is not available off linux
func Unmap(mem []byte) error {
	if mem == nil {
		return nil
	}
	return ErrUnsupported
}

// PageSize returns the common 4KB page
func PageSize() int {
	return 4096
}
