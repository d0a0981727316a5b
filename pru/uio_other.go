//go:build !linux

package pru

import "github.com/nasa-jpl/prudaq/shmem"

// DefaultDevice is the uio_pruss device node
const DefaultDevice = "/dev/uio0"

// UIO is only available on linux.  Every method fails with shmem.ErrUnsupported.
type UIO struct {
	Device string
}

func (u *UIO) Open() error                    { return shmem.ErrUnsupported }
func (u *UIO) Load(core int, fw string) error { return shmem.ErrUnsupported }
func (u *UIO) Disable(core int) error         { return shmem.ErrUnsupported }
func (u *UIO) Params() ([]byte, error)        { return nil, shmem.ErrUnsupported }
func (u *UIO) Close() error                   { return nil }

func (u *UIO) ExtMem() ([]byte, uint32, error) { return nil, 0, shmem.ErrUnsupported }
