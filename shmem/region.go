package shmem

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// WordSize is the size in bytes of one shared word.
const WordSize = 4

var (
	// ErrRegionTooSmall is generated when a mapping cannot hold the requested regions
	ErrRegionTooSmall = errors.New("mapped memory too small for the requested regions")

	// ErrOddCapacity is generated when the sample ring would not split into whole instruction words
	ErrOddCapacity = errors.New("sample region capacity must be an even number of words")

	// ErrUnaligned is generated when a region length is not a whole number of words
	ErrUnaligned = errors.New("region length is not a multiple of the word size")

	// ErrSpan is generated when a span reaches past the end of a region
	ErrSpan = errors.New("span outside region")
)

// Order is the byte order of words in shared memory.  Both the PRUs and the
// ARM host are little endian.
var Order = binary.LittleEndian

// Region is a fixed-capacity circular run of 32-bit words.  The capacity is
// fixed when the region is created and never changes.  Region does not track
// positions; the cursors belong to whoever reads or writes it.
type Region struct {
	mem []byte
}

// NewRegion wraps mem, which must be a non-empty whole number of words.
func NewRegion(mem []byte) (Region, error) {
	if len(mem) == 0 {
		return Region{}, ErrRegionTooSmall
	}
	if len(mem)%WordSize != 0 {
		return Region{}, ErrUnaligned
	}
	return Region{mem: mem}, nil
}

// Capacity returns the number of words in the region
func (r Region) Capacity() uint32 {
	return uint32(len(r.mem) / WordSize)
}

// Len returns the size of the region in bytes
func (r Region) Len() int {
	return len(r.mem)
}

func (r Region) check(off, n uint32) error {
	if uint64(off)+uint64(n) > uint64(r.Capacity()) {
		return fmt.Errorf("%w: words [%d, %d) of %d", ErrSpan, off, uint64(off)+uint64(n), r.Capacity())
	}
	return nil
}

// CopyOut copies the n words starting at word off into dst in a single
// transfer and returns the number of bytes copied.  The span must not wrap;
// callers split wrapped spans themselves.
func (r Region) CopyOut(dst []byte, off, n uint32) (int, error) {
	if err := r.check(off, n); err != nil {
		return 0, err
	}
	nb := int(n) * WordSize
	if len(dst) < nb {
		return 0, fmt.Errorf("%w: destination holds %d bytes, need %d", ErrRegionTooSmall, len(dst), nb)
	}
	start := int(off) * WordSize
	return copy(dst[:nb], r.mem[start:start+nb]), nil
}

// CopyIn copies src, a whole number of words, into the region starting at word off.
func (r Region) CopyIn(off uint32, src []byte) error {
	if len(src)%WordSize != 0 {
		return ErrUnaligned
	}
	if err := r.check(off, uint32(len(src)/WordSize)); err != nil {
		return err
	}
	copy(r.mem[int(off)*WordSize:], src)
	return nil
}

// Word returns word i.  It panics if i is out of range, the same as a slice index.
func (r Region) Word(i uint32) uint32 {
	return Order.Uint32(r.mem[int(i)*WordSize:])
}

// SetWord sets word i to v
func (r Region) SetWord(i, v uint32) {
	Order.PutUint32(r.mem[int(i)*WordSize:], v)
}
