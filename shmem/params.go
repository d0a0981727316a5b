package shmem

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// byte offsets of the parameter block fields in PRU shared RAM
const (
	OffPhysicalAddr = 0
	OffDDRLen       = 4
	OffSharedPtr    = 8
	OffBytesWritten = 12
	OffHighCycles   = 16
	OffLowCycles    = 20
	OffInputSelect  = 24

	// ParamsSize is the number of bytes the parameter block occupies
	ParamsSize = 28
)

// Params is a view over the parameter block shared with the PRUs.
//
// The PRUs update SharedPtr and BytesWritten whenever they like, with no lock
// and no handshake.  Every field is read and written as one aligned 32-bit
// access.  sync/atomic is used only because it is the one way to spell an
// aligned single load in Go that the race detector understands when the
// producer is the in-process simulator; on the hardware it is a plain load.
// A value read here may be stale by whatever the producer did since, which the
// drain loop tolerates by picking it up on the next poll.
type Params struct {
	mem []byte
}

// NewParams wraps mem, which must hold at least ParamsSize bytes and start on
// a word boundary (any mmap or make'd buffer does).
func NewParams(mem []byte) (*Params, error) {
	if len(mem) < ParamsSize {
		return nil, fmt.Errorf("%w: parameter block needs %d bytes, have %d", ErrRegionTooSmall, ParamsSize, len(mem))
	}
	if uintptr(unsafe.Pointer(&mem[0]))%WordSize != 0 {
		return nil, ErrUnaligned
	}
	return &Params{mem: mem}, nil
}

func (p *Params) field(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&p.mem[off]))
}

func (p *Params) load(off int) uint32 {
	return atomic.LoadUint32(p.field(off))
}

func (p *Params) store(off int, v uint32) {
	atomic.StoreUint32(p.field(off), v)
}

// PhysicalAddr is the PRU-side address of the DDR pool
func (p *Params) PhysicalAddr() uint32 { return p.load(OffPhysicalAddr) }

// SetPhysicalAddr tells the PRUs where the DDR pool is
func (p *Params) SetPhysicalAddr(v uint32) { p.store(OffPhysicalAddr, v) }

// DDRLen is the length in bytes of the sample ring
func (p *Params) DDRLen() uint32 { return p.load(OffDDRLen) }

// SetDDRLen tells the PRUs how long the sample ring is
func (p *Params) SetDDRLen(v uint32) { p.store(OffDDRLen, v) }

// SharedPtr is the PRU-side address the producer will write next
func (p *Params) SharedPtr() uint32 { return p.load(OffSharedPtr) }

// SetSharedPtr resets the producer's write pointer.  Only done before the
// PRUs are started; afterwards the field belongs to the producer.
func (p *Params) SetSharedPtr(v uint32) { p.store(OffSharedPtr, v) }

// BytesWritten is the producer's free-running count of bytes written.  It is
// 32 bits wide and wraps.
func (p *Params) BytesWritten() uint32 { return p.load(OffBytesWritten) }

// SetBytesWritten sets the byte counter; used by producers
func (p *Params) SetBytesWritten(v uint32) { p.store(OffBytesWritten, v) }

// Cycles returns the high and low halves of the GPIO clock period, in PRU cycles
func (p *Params) Cycles() (high, low uint32) {
	return p.load(OffHighCycles), p.load(OffLowCycles)
}

// SetCycles sets the high and low halves of the GPIO clock period
func (p *Params) SetCycles(high, low uint32) {
	p.store(OffHighCycles, high)
	p.store(OffLowCycles, low)
}

// InputSelect is the value PRU0 drives onto the analog switch select lines
func (p *Params) InputSelect() uint32 { return p.load(OffInputSelect) }

// SetInputSelect sets the analog switch select value
func (p *Params) SetInputSelect(v uint32) { p.store(OffInputSelect, v) }

// WriteIndex converts the producer's write pointer into a word index in the
// sample ring starting at physical address base with capacity words.  ok is
// false if the pointer lies outside the ring, which happens before the
// producer has started or if the block was never initialised.
func (p *Params) WriteIndex(base, capacity uint32) (idx uint32, ok bool) {
	ptr := p.SharedPtr()
	if ptr < base {
		return 0, false
	}
	off := ptr - base
	if off%WordSize != 0 {
		return 0, false
	}
	idx = off / WordSize
	if idx >= capacity {
		return 0, false
	}
	return idx, true
}
