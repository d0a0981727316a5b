package pru

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/nasa-jpl/prudaq/clock"
	"github.com/nasa-jpl/prudaq/shmem"
)

const (
	// DefaultSimPool is the simulated DDR pool size, the uio_pruss default
	DefaultSimPool = 0x40000

	// DefaultSimPhys is the physical address the simulated pool claims to live at
	DefaultSimPhys = 0x9c940000

	// DefaultSimChunk is how many words the simulated producer writes per update
	DefaultSimChunk = 256
)

// ErrNotConfigured is generated when the simulated producer runs before the
// parameter block describes a usable sample ring
var ErrNotConfigured = errors.New("parameter block does not describe a sample ring")

// Sim is an in-process stand-in for the PRU pair running the capture
// firmware.  Loading core 1 starts a goroutine that writes a ramp into the
// sample ring at the rate set by the programmed clock divisor and advances the
// write pointer and byte counter in the parameter block, the way PRU1 does.
// Core 0 only records that it was started.
//
// Like the hardware, the simulated producer does not synchronise with the
// consumer beyond the word-sized stores of the write pointer and counter.
type Sim struct {
	// PoolBytes is the size of the DDR pool, DefaultSimPool if zero
	PoolBytes int

	// Phys is the pretend physical address of the pool, DefaultSimPhys if zero
	Phys uint32

	// Rate is the sample word rate.  Zero derives it from the clock divisor.
	Rate float64

	// Chunk is the number of words per update, DefaultSimChunk if zero
	Chunk int

	// Manual disables the producer goroutine; the caller drives it with Advance
	Manual bool

	params []byte
	pool   []byte
	p      *shmem.Params

	mu      sync.Mutex
	running [Cores]bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	// producer state, owned by whoever is advancing
	n       uint64
	idx     uint32
	written uint32
}

// Open allocates the shared RAM and the pool
func (s *Sim) Open() error {
	if s.PoolBytes == 0 {
		s.PoolBytes = DefaultSimPool
	}
	if s.Phys == 0 {
		s.Phys = DefaultSimPhys
	}
	if s.Chunk <= 0 {
		s.Chunk = DefaultSimChunk
	}
	s.params = make([]byte, 0x3000)
	s.pool = make([]byte, s.PoolBytes)
	p, err := shmem.NewParams(s.params)
	if err != nil {
		return err
	}
	s.p = p
	return nil
}

// Params returns the simulated shared data RAM
func (s *Sim) Params() ([]byte, error) {
	if s.params == nil {
		return nil, ErrNotOpen
	}
	return s.params, nil
}

// ExtMem returns the simulated DDR pool
func (s *Sim) ExtMem() ([]byte, uint32, error) {
	if s.pool == nil {
		return nil, 0, ErrNotOpen
	}
	return s.pool, s.Phys, nil
}

// SampleWord is the word the simulated ADC produces for the n'th sample with
// the given input select.  Channel 0 ramps up, channel 1 ramps down, and the
// six aux bits of each half carry a toggling clock bit and the select lines.
func SampleWord(n uint64, sel uint32) uint32 {
	ch0 := uint32(n % 1024)
	ch1 := 1023 - ch0
	aux := (sel & 0x3) << 11
	if n%2 == 1 {
		aux |= 0x0400
	}
	return (ch1|aux)<<16 | ch0 | aux
}

// Advance writes words samples into the ring and publishes the new write
// pointer and byte counter.  It is what the producer goroutine calls, and may
// be called directly when Manual is set.
func (s *Sim) Advance(words int) error {
	if s.p == nil {
		return ErrNotOpen
	}
	base, ddr := s.p.PhysicalAddr(), s.p.DDRLen()
	if base != s.Phys || ddr == 0 || int(ddr) > len(s.pool) || ddr%shmem.WordSize != 0 {
		return fmt.Errorf("%w: physical %#x, length %d", ErrNotConfigured, base, ddr)
	}
	ring, err := shmem.NewRegion(s.pool[:ddr])
	if err != nil {
		return err
	}
	capacity := ring.Capacity()
	sel := s.p.InputSelect()
	for i := 0; i < words; i++ {
		ring.SetWord(s.idx, SampleWord(s.n, sel))
		s.n++
		s.idx = (s.idx + 1) % capacity
	}
	s.written += uint32(words * shmem.WordSize)
	s.p.SetBytesWritten(s.written)
	s.p.SetSharedPtr(base + s.idx*shmem.WordSize)
	return nil
}

// wordRate is the configured or clock-derived words per second
func (s *Sim) wordRate() (float64, error) {
	if s.Rate > 0 {
		return s.Rate, nil
	}
	high, low := s.p.Cycles()
	if high+low < clock.MinCycles {
		return 0, fmt.Errorf("%w: %d cycles programmed", clock.ErrFrequencyTooHigh, high+low)
	}
	return clock.PRUClock / float64(high+low), nil
}

// Load starts core.  The firmware path is not read.
func (s *Sim) Load(core int, firmware string) error {
	if err := checkCore(core); err != nil {
		return err
	}
	if s.p == nil {
		return ErrNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[core] {
		return nil
	}
	s.running[core] = true
	if core == 0 {
		return nil
	}
	s.idx = 0
	s.written = s.p.BytesWritten()
	if s.Manual {
		return nil
	}
	r, err := s.wordRate()
	if err != nil {
		s.running[core] = false
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel, s.done, s.err = cancel, make(chan struct{}), nil
	go s.produce(ctx, rate.NewLimiter(rate.Limit(r), s.Chunk), s.done)
	return nil
}

func (s *Sim) produce(ctx context.Context, lim *rate.Limiter, done chan struct{}) {
	defer close(done)
	for {
		if err := lim.WaitN(ctx, s.Chunk); err != nil {
			return
		}
		if err := s.Advance(s.Chunk); err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}
	}
}

// Disable halts core.  Halting core 1 stops the producer and waits for it.
func (s *Sim) Disable(core int) error {
	if err := checkCore(core); err != nil {
		return err
	}
	s.mu.Lock()
	s.running[core] = false
	cancel, done := s.cancel, s.done
	if core == 1 {
		s.cancel, s.done = nil, nil
	}
	s.mu.Unlock()
	if core == 1 && cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// Running reports whether core has been loaded and not disabled
func (s *Sim) Running(core int) bool {
	if checkCore(core) != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[core]
}

// Err returns the error that stopped the producer goroutine, if any
func (s *Sim) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops both cores
func (s *Sim) Close() error {
	for core := Cores - 1; core >= 0; core-- {
		if err := s.Disable(core); err != nil {
			return err
		}
	}
	return nil
}
