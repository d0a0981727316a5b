package shmem

import "fmt"

// Layout is the DDR pool carved into the sample ring and the instruction ring.
// The instruction ring holds exactly half as many words as the sample ring and
// starts immediately after it, so sample word i is paired with instruction
// word i/2.
type Layout struct {
	Samples      Region
	Instructions Region

	// InstructionOffset is the byte offset of the instruction ring within the pool
	InstructionOffset int
}

// DefaultSampleBytes is the sample ring size used when none is configured:
// two thirds of the pool, rounded down to an even number of words.  The last
// third then holds the instruction ring.
func DefaultSampleBytes(poolLen int) int {
	words := poolLen * 2 / 3 / WordSize
	words &^= 1
	return words * WordSize
}

// Split carves pool into a sample ring of sampleBytes bytes followed by an
// instruction ring of half that size.  sampleBytes <= 0 selects DefaultSampleBytes.
func Split(pool []byte, sampleBytes int) (Layout, error) {
	if sampleBytes <= 0 {
		sampleBytes = DefaultSampleBytes(len(pool))
	}
	if sampleBytes%WordSize != 0 {
		return Layout{}, ErrUnaligned
	}
	if (sampleBytes/WordSize)%2 != 0 {
		return Layout{}, ErrOddCapacity
	}
	instBytes := sampleBytes / 2
	if sampleBytes == 0 || sampleBytes+instBytes > len(pool) {
		return Layout{}, fmt.Errorf("%w: need %d bytes, have %d", ErrRegionTooSmall, sampleBytes+instBytes, len(pool))
	}
	samples, err := NewRegion(pool[:sampleBytes])
	if err != nil {
		return Layout{}, err
	}
	insts, err := NewRegion(pool[sampleBytes : sampleBytes+instBytes])
	if err != nil {
		return Layout{}, err
	}
	return Layout{Samples: samples, Instructions: insts, InstructionOffset: sampleBytes}, nil
}
