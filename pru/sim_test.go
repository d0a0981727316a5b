package pru

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/prudaq/clock"
	"github.com/nasa-jpl/prudaq/shmem"
)

func openSim(t *testing.T, ringBytes uint32) (*Sim, *shmem.Params) {
	t.Helper()
	s := &Sim{PoolBytes: 1024, Manual: true}
	require.NoError(t, s.Open())
	mem, err := s.Params()
	require.NoError(t, err)
	p, err := shmem.NewParams(mem)
	require.NoError(t, err)
	p.SetPhysicalAddr(s.Phys)
	p.SetDDRLen(ringBytes)
	p.SetSharedPtr(s.Phys)
	return s, p
}

func TestSimBeforeOpen(t *testing.T) {
	s := &Sim{}
	_, err := s.Params()
	assert.ErrorIs(t, err, ErrNotOpen)
	_, _, err = s.ExtMem()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, s.Advance(1), ErrNotOpen)
	assert.ErrorIs(t, s.Load(1, ""), ErrNotOpen)
}

func TestSimBadCore(t *testing.T) {
	s, _ := openSim(t, 64)
	assert.ErrorIs(t, s.Load(2, ""), ErrCore)
	assert.ErrorIs(t, s.Disable(-1), ErrCore)
	assert.False(t, s.Running(5))
}

func TestSimAdvanceWritesRamp(t *testing.T) {
	s, p := openSim(t, 64)
	require.NoError(t, s.Load(1, "pru1.bin"))
	require.NoError(t, s.Advance(5))

	assert.Equal(t, s.Phys+20, p.SharedPtr())
	assert.Equal(t, uint32(20), p.BytesWritten())
	idx, ok := p.WriteIndex(s.Phys, 16)
	require.True(t, ok)
	assert.Equal(t, uint32(5), idx)

	pool, _, err := s.ExtMem()
	require.NoError(t, err)
	ring, err := shmem.NewRegion(pool[:64])
	require.NoError(t, err)
	for i := uint32(0); i < 5; i++ {
		assert.Equal(t, SampleWord(uint64(i), 0), ring.Word(i), "word %d", i)
	}
}

func TestSimAdvanceWraps(t *testing.T) {
	s, p := openSim(t, 64)
	require.NoError(t, s.Load(1, ""))
	require.NoError(t, s.Advance(20))
	assert.Equal(t, s.Phys+16, p.SharedPtr())
	assert.Equal(t, uint32(80), p.BytesWritten())
}

func TestSimNeedsRing(t *testing.T) {
	s, p := openSim(t, 0)
	assert.ErrorIs(t, s.Advance(1), ErrNotConfigured)
	p.SetDDRLen(4096)
	assert.ErrorIs(t, s.Advance(1), ErrNotConfigured, "ring larger than the pool")
}

func TestSampleWordDemasksToRamp(t *testing.T) {
	for _, n := range []uint64{0, 1, 1023, 1024, 5000} {
		w := SampleWord(n, 3)
		assert.Equal(t, uint32(n%1024), w&0x3ff)
		assert.Equal(t, uint32(1023-n%1024), (w>>16)&0x3ff)
		assert.NotZero(t, w&^0x03ff03ff, "select bits are set")
	}
}

func TestSimRateFromClock(t *testing.T) {
	s, p := openSim(t, 64)
	div, err := clock.Compute(10e6)
	require.NoError(t, err)
	div.Program(p)
	r, err := s.wordRate()
	require.NoError(t, err)
	assert.Equal(t, 10e6, r)

	p.SetCycles(0, 0)
	_, err = s.wordRate()
	assert.ErrorIs(t, err, clock.ErrFrequencyTooHigh)
}

func TestSimProducerRunsUntilDisabled(t *testing.T) {
	s, p := openSim(t, 512)
	s.Manual = false
	s.Rate = 1e6
	s.Chunk = 32
	require.NoError(t, s.Load(0, ""))
	require.NoError(t, s.Load(1, ""))
	assert.True(t, s.Running(1))
	assert.Eventually(t, func() bool { return p.BytesWritten() >= 4096 }, 2*time.Second, time.Millisecond)

	require.NoError(t, s.Close())
	assert.False(t, s.Running(0))
	assert.False(t, s.Running(1))
	n := p.BytesWritten()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, n, p.BytesWritten(), "stopped producer keeps writing")
	assert.NoError(t, s.Err())
	assert.Zero(t, n%(32*shmem.WordSize), "producer writes whole chunks")
}
