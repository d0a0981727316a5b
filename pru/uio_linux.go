//go:build linux

package pru

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff"

	"github.com/nasa-jpl/prudaq/shmem"
)

// offsets into the PRUSS mapping
const (
	sharedRAM     = 0x10000
	sharedRAMSize = 0x3000
	ctrlPRU0      = 0x22000
	ctrlPRU1      = 0x24000
	iramPRU0      = 0x34000
	iramPRU1      = 0x38000

	ctrlSoftResetN = 1 << 0
	ctrlEnable     = 1 << 1
)

// DefaultDevice is the uio_pruss device node
const DefaultDevice = "/dev/uio0"

// UIO drives the PRUs through the uio_pruss kernel driver.  Map 0 of the
// device is the PRU subsystem and map 2 the DDR pool the driver allocated
// (sized with the extram_pool_sz module parameter).
type UIO struct {
	// Device is the uio node, DefaultDevice if empty
	Device string

	// Wait is how long Open waits for the device node to appear after the
	// kernel module is loaded.  Zero means three seconds.
	Wait time.Duration

	pruss   []byte
	ext     []byte
	extPhys uint32
}

func (u *UIO) device() string {
	if u.Device == "" {
		return DefaultDevice
	}
	return u.Device
}

func (u *UIO) sysfs(mapN int, attr string) (uint64, error) {
	name := filepath.Base(u.device())
	path := filepath.Join("/sys/class/uio", name, "maps", "map"+strconv.Itoa(mapN), attr)
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
}

// Open waits for the device node, then maps the subsystem and the DDR pool
func (u *UIO) Open() error {
	wait := u.Wait
	if wait == 0 {
		wait = 3 * time.Second
	}
	dev := u.device()
	op := func() error {
		_, err := os.Stat(dev)
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         500 * time.Millisecond,
		MaxElapsedTime:      wait,
		Clock:               backoff.SystemClock})
	if err != nil {
		return fmt.Errorf("waiting for %s, is uio_pruss loaded: %w", dev, err)
	}

	psize, err := u.sysfs(0, "size")
	if err != nil {
		return fmt.Errorf("reading PRUSS map size: %w", err)
	}
	esize, err := u.sysfs(2, "size")
	if err != nil {
		return fmt.Errorf("reading DDR pool size: %w", err)
	}
	ephys, err := u.sysfs(2, "addr")
	if err != nil {
		return fmt.Errorf("reading DDR pool address: %w", err)
	}
	page := shmem.PageSize()
	u.pruss, err = shmem.Map(dev, 0, int(psize))
	if err != nil {
		return err
	}
	u.ext, err = shmem.Map(dev, int64(2*page), int(esize))
	if err != nil {
		shmem.Unmap(u.pruss)
		u.pruss = nil
		return err
	}
	u.extPhys = uint32(ephys)
	return nil
}

func (u *UIO) reg(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&u.pruss[off]))
}

func ctrlOffset(core int) int {
	if core == 0 {
		return ctrlPRU0
	}
	return ctrlPRU1
}

func iramOffset(core int) int {
	if core == 0 {
		return iramPRU0
	}
	return iramPRU1
}

// Disable halts core by clearing its enable bit
func (u *UIO) Disable(core int) error {
	if err := checkCore(core); err != nil {
		return err
	}
	if u.pruss == nil {
		return ErrNotOpen
	}
	atomic.StoreUint32(u.reg(ctrlOffset(core)), ctrlSoftResetN)
	return nil
}

// Load halts core, copies the program from firmware into its instruction RAM
// and starts it from address zero
func (u *UIO) Load(core int, firmware string) error {
	if err := checkCore(core); err != nil {
		return err
	}
	if u.pruss == nil {
		return ErrNotOpen
	}
	prog, err := os.ReadFile(firmware)
	if err != nil {
		return err
	}
	if len(prog) > IRAMSize || len(prog)%shmem.WordSize != 0 {
		return fmt.Errorf("%w: %s is %d bytes", ErrFirmwareSize, firmware, len(prog))
	}
	if err = u.Disable(core); err != nil {
		return err
	}
	base := iramOffset(core)
	for i := 0; i < len(prog); i += shmem.WordSize {
		atomic.StoreUint32(u.reg(base+i), shmem.Order.Uint32(prog[i:]))
	}
	atomic.StoreUint32(u.reg(ctrlOffset(core)), ctrlEnable)
	return nil
}

// Params returns the PRU shared data RAM
func (u *UIO) Params() ([]byte, error) {
	if u.pruss == nil {
		return nil, ErrNotOpen
	}
	return u.pruss[sharedRAM : sharedRAM+sharedRAMSize], nil
}

// ExtMem returns the DDR pool and its physical address
func (u *UIO) ExtMem() ([]byte, uint32, error) {
	if u.ext == nil {
		return nil, 0, ErrNotOpen
	}
	return u.ext, u.extPhys, nil
}

// Close unmaps everything Open mapped
func (u *UIO) Close() error {
	var err error
	if u.ext != nil {
		err = shmem.Unmap(u.ext)
		u.ext = nil
	}
	if u.pruss != nil {
		if e := shmem.Unmap(u.pruss); e != nil && err == nil {
			err = e
		}
		u.pruss = nil
	}
	return err
}
