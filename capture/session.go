package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nasa-jpl/prudaq/clock"
	"github.com/nasa-jpl/prudaq/instruction"
	"github.com/nasa-jpl/prudaq/pru"
	"github.com/nasa-jpl/prudaq/shmem"
)

// SmallPoolBytes is the DDR pool size below which overruns are likely
const SmallPoolBytes = 1000000

// ErrNotRunning is generated when a session is asked to stop before it started
var ErrNotRunning = errors.New("capture is not running")

// Options configure a Session
type Options struct {
	// Frequency is the requested ADC/DAC clock in Hz
	Frequency float64

	// InputSelect drives the analog switch in front of the ADC
	InputSelect uint32

	// Firmware holds the PRU0 and PRU1 program paths
	Firmware [2]string

	// SampleBytes is the size of the sample ring.  Zero takes two thirds of the pool.
	SampleBytes int

	// Drain tunes the drain loop.  ReadIndex is ignored; a session always
	// starts at word 0.
	Drain Config
}

// Session brings up the PRUs, runs the drain loop and tears everything down
// again.  A Session runs once.
type Session struct {
	drv  pru.Driver
	sink io.Writer
	src  instruction.WordSource
	opts Options
	log  *log.Logger

	mu      sync.Mutex
	drainer *Drainer
	cancel  context.CancelFunc
}

// NewSession returns a session that captures from drv into sink, feeding the
// instruction ring from src.  The caller owns sink and src and closes them
// after Run returns.
func NewSession(drv pru.Driver, sink io.Writer, src instruction.WordSource, opts Options) *Session {
	l := opts.Drain.Logger
	if l == nil {
		l = log.Default()
		opts.Drain.Logger = l
	}
	return &Session{drv: drv, sink: sink, src: src, opts: opts, log: l}
}

// paramsProducer reads the producer's position out of the parameter block
type paramsProducer struct {
	p        *shmem.Params
	base     uint32
	capacity uint32
}

func (pp paramsProducer) WriteIndex() (uint32, bool) {
	return pp.p.WriteIndex(pp.base, pp.capacity)
}

func (pp paramsProducer) BytesWritten() uint32 {
	return pp.p.BytesWritten()
}

// Run performs the whole capture: checks the clock, maps the shared memory,
// writes the parameter block, fills the instruction ring, starts both PRUs
// and drains until ctx is cancelled or Stop is called.  The PRUs are stopped
// and the mappings released before Run returns, whatever the outcome.
func (s *Session) Run(ctx context.Context) (err error) {
	div, err := clock.Compute(s.opts.Frequency)
	if err != nil {
		return err
	}
	s.log.Info("clock", "requested", s.opts.Frequency, "actual", div.Actual(), "cycles", div.Cycles)
	if s.opts.Frequency > clock.DMAWarnFrequency {
		s.log.Warn("frequencies above 5MHz may exceed the DMA bandwidth and drop samples", "freq", s.opts.Frequency)
	}

	if err = s.drv.Open(); err != nil {
		return fmt.Errorf("opening PRU driver: %w", err)
	}
	defer func() {
		if cerr := s.drv.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	pmem, err := s.drv.Params()
	if err != nil {
		return fmt.Errorf("mapping parameter block: %w", err)
	}
	params, err := shmem.NewParams(pmem)
	if err != nil {
		return err
	}
	pool, phys, err := s.drv.ExtMem()
	if err != nil {
		return fmt.Errorf("mapping DDR pool: %w", err)
	}
	s.log.Info("DDR pool", "bytes", len(pool), "physical", fmt.Sprintf("%#08x", phys))
	if len(pool) < SmallPoolBytes {
		s.log.Warn("shared buffer is small, overruns are likely", "bytes", len(pool))
	}
	layout, err := shmem.Split(pool, s.opts.SampleBytes)
	if err != nil {
		return err
	}
	s.log.Info("rings", "sampleBytes", layout.Samples.Len(), "instructionBytes", layout.Instructions.Len())

	params.SetPhysicalAddr(phys)
	params.SetDDRLen(uint32(layout.Samples.Len()))
	div.Program(params)
	params.SetInputSelect(s.opts.InputSelect)
	params.SetSharedPtr(phys)
	params.SetBytesWritten(0)

	feeder := instruction.NewFeeder(s.src, layout.Instructions)
	if err = feeder.Prime(); err != nil {
		return fmt.Errorf("filling instruction ring: %w", err)
	}

	cfg := s.opts.Drain
	cfg.ReadIndex = 0
	prod := paramsProducer{p: params, base: phys, capacity: layout.Samples.Capacity()}
	d, err := NewDrainer(layout.Samples, prod, feeder, s.sink, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.drainer, s.cancel = d, cancel
	s.mu.Unlock()

	for core := 0; core < 2; core++ {
		if err = s.drv.Load(core, s.opts.Firmware[core]); err != nil {
			s.disable()
			return fmt.Errorf("starting PRU%d: %w", core, err)
		}
	}
	defer s.disable()

	err = d.Run(ctx)
	st := d.Stats()
	s.log.Info("drain finished", "bytes", st.BytesRead, "passes", st.Passes, "overruns", st.Overruns)
	return err
}

func (s *Session) disable() {
	for core := 1; core >= 0; core-- {
		if err := s.drv.Disable(core); err != nil {
			s.log.Error("disabling PRU", "core", core, "err", err)
		}
	}
}

// Stop cancels a running session.  Run returns shortly after.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return ErrNotRunning
	}
	s.cancel()
	return nil
}

// Stats returns the drain loop's latest snapshot, the zero value before it starts
func (s *Session) Stats() Stats {
	s.mu.Lock()
	d := s.drainer
	s.mu.Unlock()
	if d == nil {
		return Stats{}
	}
	return d.Stats()
}
