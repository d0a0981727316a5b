package capture

import (
	"time"

	"github.com/nasa-jpl/prudaq/mathx"
)

const (
	// DefaultTelemetryEvery is how many drain iterations pass between telemetry checks
	DefaultTelemetryEvery = 100

	// DefaultTelemetryInterval is the least wall time between two reports
	DefaultTelemetryInterval = time.Second
)

// Report is one telemetry sample
type Report struct {
	// Time is when the sample was taken
	Time time.Time `json:"time"`

	// Elapsed is the time since the drain started
	Elapsed time.Duration `json:"elapsed"`

	// BytesPerSecond is the producer's average throughput since the start
	BytesPerSecond float64 `json:"bytesPerSecond"`

	// BytesWritten is the producer's counter as last read
	BytesWritten uint32 `json:"bytesWritten"`

	// BytesRead is the consumer's counter, with the same wrap as BytesWritten
	BytesRead uint32 `json:"bytesRead"`

	// Drift is BytesWritten - BytesRead modulo 2^32
	Drift uint32 `json:"drift"`

	// Overrun is set when Drift reaches a whole sample ring, meaning the
	// producer has probably lapped the consumer
	Overrun bool `json:"overrun"`
}

// Telemetry decides when to sample the counters and turns them into reports.
// It is not safe for concurrent use; the drain loop owns it.
type Telemetry struct {
	every       int
	interval    time.Duration
	regionBytes uint32

	start time.Time
	last  time.Time
	iter  int

	// the producer counter is 32 bits and wraps after 4GB, which at full rate is
	// a couple of minutes.  Accumulate the deltas so throughput survives wrap.
	prevWritten uint32
	total       uint64
}

// NewTelemetry returns a Telemetry that samples on every every'th Tick, at
// most once per interval, for a sample ring of regionBytes bytes.
// Non-positive every and interval select the defaults.
func NewTelemetry(start time.Time, every int, interval time.Duration, regionBytes uint32) *Telemetry {
	if every <= 0 {
		every = DefaultTelemetryEvery
	}
	if interval <= 0 {
		interval = DefaultTelemetryInterval
	}
	return &Telemetry{every: every, interval: interval, regionBytes: regionBytes, start: start, last: start}
}

// Tick counts one drain iteration and reports whether the counters should be
// sampled now.
func (t *Telemetry) Tick(now time.Time) bool {
	due := t.iter%t.every == 0
	t.iter++
	if !due || now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Measure builds a report from the producer's and consumer's byte counters
func (t *Telemetry) Measure(now time.Time, written, read uint32) Report {
	t.total += uint64(mathx.WrapDiff(written, t.prevWritten))
	t.prevWritten = written

	r := Report{
		Time:         now,
		Elapsed:      now.Sub(t.start),
		BytesWritten: written,
		BytesRead:    read,
		Drift:        mathx.WrapDiff(written, read),
	}
	if s := r.Elapsed.Seconds(); s > 0 {
		r.BytesPerSecond = float64(t.total) / s
	}
	r.Overrun = t.regionBytes > 0 && r.Drift >= t.regionBytes
	return r
}
