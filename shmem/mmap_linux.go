//go:build linux

package shmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps length bytes of the device or file at path, starting at offset,
// shared and read/write.
func Map(path string, offset int64, length int) ([]byte, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	// the mapping outlives the descriptor
	defer f.Close()
	mem, err := unix.Mmap(int(f.Fd()), offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s at %#x (%d bytes): %w", path, offset, length, err)
	}
	return mem, nil
}

// Unmap releases a mapping made by Map
func Unmap(mem []byte) error {
	if mem == nil {
		return nil
	}
	return unix.Munmap(mem)
}

// PageSize is the system page size, the unit uio uses to select a mapping
func PageSize() int {
	return unix.Getpagesize()
}
