package instruction

import (
	"fmt"

	"github.com/nasa-jpl/prudaq/shmem"
)

// WordSource supplies instruction words one at a time; *Source is one
type WordSource interface {
	Next() (uint32, error)
}

// Feeder refills spans of the instruction ring from a WordSource.  Words are
// staged in local memory and copied into the ring in one transfer per span,
// so the slow shared memory is touched once per refill.
type Feeder struct {
	src     WordSource
	ring    shmem.Region
	staging []byte
	fill    uint32
	fed     uint64
}

// NewFeeder returns a Feeder that writes into ring
func NewFeeder(src WordSource, ring shmem.Region) *Feeder {
	return &Feeder{src: src, ring: ring, staging: make([]byte, ring.Len())}
}

// Prime fills the entire ring, for use before the PRUs start so they never
// read an uninitialised word
func (f *Feeder) Prime() error {
	return f.Refill(0, f.ring.Capacity())
}

// Refill reads count words into the ring starting at word offset.  The span
// must not run past the end of the ring; wrapped spans are refilled as two
// calls.  If the source fails nothing is copied into the ring.
func (f *Feeder) Refill(offset, count uint32) error {
	if count == 0 {
		return nil
	}
	capacity := f.ring.Capacity()
	if uint64(offset)+uint64(count) > uint64(capacity) {
		return fmt.Errorf("%w: instruction words [%d, %d) of %d", shmem.ErrSpan, offset, uint64(offset)+uint64(count), capacity)
	}
	start := int(offset) * shmem.WordSize
	for i := 0; i < int(count); i++ {
		w, err := f.src.Next()
		if err != nil {
			return fmt.Errorf("refilling instruction words [%d, %d): %w", offset, offset+count, err)
		}
		shmem.Order.PutUint32(f.staging[start+i*shmem.WordSize:], w)
	}
	end := start + int(count)*shmem.WordSize
	if err := f.ring.CopyIn(offset, f.staging[start:end]); err != nil {
		return err
	}
	f.fill = (offset + count) % capacity
	f.fed += uint64(count)
	return nil
}

// FillIndex is the word offset the ring has been refilled up to
func (f *Feeder) FillIndex() uint32 {
	return f.fill
}

// Fed is the total number of words written into the ring
func (f *Feeder) Fed() uint64 {
	return f.fed
}

// Capacity is the number of words in the instruction ring
func (f *Feeder) Capacity() uint32 {
	return f.ring.Capacity()
}
