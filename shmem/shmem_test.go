package shmem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/prudaq/shmem"
)

func TestRegionRejectsPartialWords(t *testing.T) {
	_, err := shmem.NewRegion(make([]byte, 10))
	assert.ErrorIs(t, err, shmem.ErrUnaligned)

	_, err = shmem.NewRegion(nil)
	assert.ErrorIs(t, err, shmem.ErrRegionTooSmall)
}

func TestRegionCopyOutBounds(t *testing.T) {
	r, err := shmem.NewRegion(make([]byte, 8*shmem.WordSize))
	require.NoError(t, err)
	for i := uint32(0); i < r.Capacity(); i++ {
		r.SetWord(i, i*0x01010101)
	}

	dst := make([]byte, 8*shmem.WordSize)
	n, err := r.CopyOut(dst, 6, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, uint32(6*0x01010101), shmem.Order.Uint32(dst[0:]))
	assert.Equal(t, uint32(7*0x01010101), shmem.Order.Uint32(dst[4:]))

	_, err = r.CopyOut(dst, 7, 2)
	assert.ErrorIs(t, err, shmem.ErrSpan, "a span running off the end must not be copied")
}

func TestRegionCopyIn(t *testing.T) {
	r, err := shmem.NewRegion(make([]byte, 4*shmem.WordSize))
	require.NoError(t, err)
	src := make([]byte, 2*shmem.WordSize)
	shmem.Order.PutUint32(src[0:], 0xAAAA5555)
	shmem.Order.PutUint32(src[4:], 0x12345678)
	require.NoError(t, r.CopyIn(2, src))
	assert.Equal(t, uint32(0xAAAA5555), r.Word(2))
	assert.Equal(t, uint32(0x12345678), r.Word(3))

	assert.ErrorIs(t, r.CopyIn(3, src), shmem.ErrSpan)
	assert.ErrorIs(t, r.CopyIn(0, src[:3]), shmem.ErrUnaligned)
}

func TestSplitDefaultIsTwoThirds(t *testing.T) {
	pool := make([]byte, 3*1024)
	l, err := shmem.Split(pool, 0)
	require.NoError(t, err)
	assert.Equal(t, 2048, l.Samples.Len())
	assert.Equal(t, l.Samples.Capacity()/2, l.Instructions.Capacity())
	assert.Equal(t, 2048, l.InstructionOffset)
}

func TestSplitExplicit(t *testing.T) {
	pool := make([]byte, 4096)
	l, err := shmem.Split(pool, 1024)
	require.NoError(t, err)
	assert.Equal(t, uint32(256), l.Samples.Capacity())
	assert.Equal(t, uint32(128), l.Instructions.Capacity())

	// the instruction ring starts where the sample ring ends
	l.Instructions.SetWord(0, 0xCAFEF00D)
	assert.Equal(t, uint32(0xCAFEF00D), shmem.Order.Uint32(pool[1024:]))
}

func TestSplitErrors(t *testing.T) {
	pool := make([]byte, 64)
	_, err := shmem.Split(pool, 12) // three words
	assert.ErrorIs(t, err, shmem.ErrOddCapacity)
	_, err = shmem.Split(pool, 10)
	assert.ErrorIs(t, err, shmem.ErrUnaligned)
	_, err = shmem.Split(pool, 48) // 48 + 24 > 64
	assert.ErrorIs(t, err, shmem.ErrRegionTooSmall)
}

func TestParamsWriteIndex(t *testing.T) {
	p, err := shmem.NewParams(make([]byte, 8192))
	require.NoError(t, err)
	const base = 0x9f000000
	p.SetPhysicalAddr(base)

	p.SetSharedPtr(base + 5*shmem.WordSize)
	idx, ok := p.WriteIndex(base, 8)
	assert.True(t, ok)
	assert.Equal(t, uint32(5), idx)

	p.SetSharedPtr(0) // producer not yet started
	_, ok = p.WriteIndex(base, 8)
	assert.False(t, ok)

	p.SetSharedPtr(base + 8*shmem.WordSize)
	_, ok = p.WriteIndex(base, 8)
	assert.False(t, ok, "one past the end is not a valid write index")
}

func TestParamsLayoutOnTheWire(t *testing.T) {
	mem := make([]byte, shmem.ParamsSize)
	p, err := shmem.NewParams(mem)
	require.NoError(t, err)
	p.SetCycles(10, 11)
	p.SetDDRLen(0x1000)
	assert.Equal(t, uint32(10), shmem.Order.Uint32(mem[shmem.OffHighCycles:]))
	assert.Equal(t, uint32(11), shmem.Order.Uint32(mem[shmem.OffLowCycles:]))
	assert.Equal(t, uint32(0x1000), shmem.Order.Uint32(mem[shmem.OffDDRLen:]))

	_, err = shmem.NewParams(mem[:8])
	assert.ErrorIs(t, err, shmem.ErrRegionTooSmall)
}
