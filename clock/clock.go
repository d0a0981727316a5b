// Package clock converts a requested GPIO sample clock into the PRU cycle
// counts that produce it.
package clock

import (
	"errors"
	"fmt"

	"github.com/nasa-jpl/prudaq/mathx"
)

const (
	// PRUClock is the PRU core clock, Hz
	PRUClock = 200e6

	// MinCycles is the shortest clock period the firmware can service.
	// PRU0 needs the spare cycles to generate chip selects, which caps the
	// clock at 10MHz.
	MinCycles = 20

	// DMAWarnFrequency is the rate above which sampling both channels is
	// likely to overrun for lack of DMA bandwidth
	DMAWarnFrequency = 5e6

	// DefaultFrequency is the GPIO clock used when none is requested, Hz
	DefaultFrequency = 10e6
)

var (
	// ErrFrequencyTooHigh is generated when a requested frequency gives fewer than MinCycles cycles per period
	ErrFrequencyTooHigh = errors.New("requested frequency too high (max: 10MHz)")

	// ErrFrequencyInvalid is generated for zero, negative, or NaN frequencies
	ErrFrequencyInvalid = errors.New("requested frequency must be positive")
)

// CycleSetter accepts the two halves of a clock period; shmem.Params is one.
type CycleSetter interface {
	SetCycles(high, low uint32)
}

// Divisor is the PRU-cycle shape of one GPIO clock period
type Divisor struct {
	// Cycles is the whole period in PRU cycles
	Cycles uint32

	// High and Low are the two halves; Low takes the odd cycle
	High, Low uint32
}

// Actual is the clock frequency the divisor really produces, Hz
func (d Divisor) Actual() float64 {
	return PRUClock / float64(d.Cycles)
}

// Compute rounds PRUClock/freq to whole cycles and splits the period.  A
// frequency that rounds to fewer than MinCycles is ErrFrequencyTooHigh.
func Compute(freq float64) (Divisor, error) {
	if !(freq > 0) {
		return Divisor{}, fmt.Errorf("%w: got %v", ErrFrequencyInvalid, freq)
	}
	cycles := mathx.Round(PRUClock/freq, 1)
	if cycles < MinCycles {
		return Divisor{}, fmt.Errorf("%w: %.0fHz needs %.0f cycles, minimum is %d", ErrFrequencyTooHigh, freq, cycles, MinCycles)
	}
	c := uint32(cycles)
	high := c / 2
	return Divisor{Cycles: c, High: high, Low: c - high}, nil
}

// Program writes the divisor into the parameter block
func (d Divisor) Program(dst CycleSetter) {
	dst.SetCycles(d.High, d.Low)
}
