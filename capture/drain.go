package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nasa-jpl/prudaq/shmem"
)

// DefaultPoll is how long the drain loop sleeps when it finds nothing new
const DefaultPoll = 100 * time.Microsecond

// ErrRingMismatch is generated when the instruction ring is not half the sample ring
var ErrRingMismatch = errors.New("instruction ring must hold half as many words as the sample ring")

// Producer is the writing side of the sample ring as seen by the consumer.
// Values may be stale by up to one poll; they are never torn.
type Producer interface {
	// WriteIndex is the producer's write position in words.  ok is false when
	// the write pointer does not lie inside the ring.
	WriteIndex() (idx uint32, ok bool)

	// BytesWritten is the producer's cumulative byte counter, modulo 2^32
	BytesWritten() uint32
}

// Refiller tops up the instruction ring behind the consumer
type Refiller interface {
	Refill(offset, count uint32) error
	Capacity() uint32
}

// Config holds the tunables of a Drainer.  The zero value is usable.
type Config struct {
	// Loop keeps draining across wraps.  When false the drain stops after the
	// first iteration that crosses the end of the ring.
	Loop bool

	// Poll is the sleep after an iteration that found nothing new
	Poll time.Duration

	// TelemetryEvery and TelemetryInterval pace the telemetry reports
	TelemetryEvery    int
	TelemetryInterval time.Duration

	// ReadIndex is the word the consumer starts from.  The instruction ring
	// must already be filled up to ReadIndex/2.
	ReadIndex uint32

	// Logger receives telemetry and warnings.  nil is the default logger.
	Logger *log.Logger

	// Now is the clock, for tests.  nil is time.Now.
	Now func() time.Time
}

// Result describes one drain iteration
type Result struct {
	// Words is the number of sample words delivered to the sink
	Words uint32

	// Wrapped is set when the iteration crossed the end of the ring
	Wrapped bool
}

// Stats is a snapshot of the drain loop for observers on other goroutines
type Stats struct {
	Running    bool   `json:"running"`
	ReadIndex  uint32 `json:"readIndex"`
	BytesRead  uint64 `json:"bytesRead"`
	Iterations uint64 `json:"iterations"`
	Passes     uint64 `json:"passes"`
	BadPolls   uint64 `json:"badPolls"`
	Overruns   uint64 `json:"overruns"`
	Last       Report `json:"last"`
}

// Drainer is the consumer side of the sample ring.  Step and Run must be
// called from a single goroutine; Stats may be called from any.
type Drainer struct {
	ring  shmem.Region
	prod  Producer
	feed  Refiller
	sink  io.Writer
	local []byte

	read      uint32
	bytesRead uint32
	cfg       Config
	tele      *Telemetry
	log       *log.Logger
	now       func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewDrainer returns a Drainer that copies words out of ring as prod
// advances, refills feed in step and writes the demasked samples to sink.
// The staging buffer is sized to the whole ring here, once.
func NewDrainer(ring shmem.Region, prod Producer, feed Refiller, sink io.Writer, cfg Config) (*Drainer, error) {
	capacity := ring.Capacity()
	if capacity == 0 {
		return nil, shmem.ErrRegionTooSmall
	}
	if capacity%2 != 0 {
		return nil, shmem.ErrOddCapacity
	}
	if feed.Capacity() != capacity/2 {
		return nil, fmt.Errorf("%w: %d sample words, %d instruction words", ErrRingMismatch, capacity, feed.Capacity())
	}
	if cfg.ReadIndex >= capacity {
		return nil, fmt.Errorf("%w: start index %d", shmem.ErrSpan, cfg.ReadIndex)
	}
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPoll
	}
	d := &Drainer{
		ring:  ring,
		prod:  prod,
		feed:  feed,
		sink:  sink,
		local: make([]byte, ring.Len()),
		read:  cfg.ReadIndex,
		cfg:   cfg,
		log:   cfg.Logger,
		now:   cfg.Now,
	}
	if d.log == nil {
		d.log = log.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.tele = NewTelemetry(d.now(), cfg.TelemetryEvery, cfg.TelemetryInterval, uint32(ring.Len()))
	d.stats.ReadIndex = d.read
	return d, nil
}

// ReadIndex is the next word the consumer will read
func (d *Drainer) ReadIndex() uint32 {
	return d.read
}

// Stats returns the latest snapshot
func (d *Drainer) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Step runs one drain iteration without sleeping.  It copies everything
// between the consumer's read index and the producer's write index out of the
// ring, demasks it, refills the instruction ring over the same halved span,
// writes the samples to the sink and advances the read index.
func (d *Drainer) Step() (Result, error) {
	write, ok := d.prod.WriteIndex()
	if !ok {
		d.publish(func(s *Stats) { s.Iterations++; s.BadPolls++ })
		return Result{}, nil
	}
	first, second, wrapped := Unread(d.read, write, d.ring.Capacity())
	if first.N == 0 {
		d.publish(func(s *Stats) { s.Iterations++ })
		return Result{}, nil
	}

	n := 0
	for _, s := range [2]Span{first, second} {
		if s.N == 0 {
			continue
		}
		nb, err := d.ring.CopyOut(d.local[n:], s.Off, s.N)
		if err != nil {
			return Result{}, err
		}
		n += nb
	}
	Demask(d.local[:n])

	ifirst, isecond := Instructions(d.read, write, d.ring.Capacity())
	for _, s := range [2]Span{ifirst, isecond} {
		if s.N == 0 {
			continue
		}
		if err := d.feed.Refill(s.Off, s.N); err != nil {
			return Result{}, fmt.Errorf("refilling instructions [%d, %d): %w", s.Off, s.End(), err)
		}
	}

	if _, err := d.sink.Write(d.local[:n]); err != nil {
		return Result{}, fmt.Errorf("writing samples: %w", err)
	}
	d.read = write
	d.bytesRead += uint32(n)

	res := Result{Words: uint32(n / shmem.WordSize), Wrapped: wrapped}
	d.publish(func(s *Stats) {
		s.Iterations++
		s.BytesRead += uint64(n)
		if wrapped {
			s.Passes++
		}
	})
	return res, nil
}

// Run drains until ctx is cancelled, or, without Loop, until the first
// iteration that wraps.  It returns nil on either, and the first error from
// the sink or the instruction source otherwise.
func (d *Drainer) Run(ctx context.Context) error {
	d.publish(func(s *Stats) { s.Running = true })
	defer d.publish(func(s *Stats) { s.Running = false })

	timer := time.NewTimer(d.cfg.Poll)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := d.Step()
		if err != nil {
			return err
		}
		d.telemetry()
		if res.Wrapped && !d.cfg.Loop {
			d.log.Info("completed one pass of the sample ring", "bytes", d.Stats().BytesRead)
			return nil
		}
		if res.Words != 0 {
			continue
		}
		timer.Reset(d.cfg.Poll)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

func (d *Drainer) telemetry() {
	now := d.now()
	if !d.tele.Tick(now) {
		return
	}
	r := d.tele.Measure(now, d.prod.BytesWritten(), d.bytesRead)
	d.publish(func(s *Stats) {
		s.Last = r
		if r.Overrun {
			s.Overruns++
		}
	})
	d.log.Info("telemetry",
		"bytesPerSecond", fmt.Sprintf("%.0f", r.BytesPerSecond),
		"written", r.BytesWritten,
		"read", r.BytesRead,
		"drift", r.Drift)
	if r.Overrun {
		d.log.Warn("producer is a full ring ahead, samples were probably overwritten", "drift", r.Drift, "ring", d.ring.Len())
	}
}

func (d *Drainer) publish(fn func(*Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.stats.ReadIndex = d.read
	d.mu.Unlock()
}
