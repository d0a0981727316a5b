package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/nasa-jpl/prudaq/shmem"
)

func TestUnreadWrappedTailThenHead(t *testing.T) {
	first, second, wrapped := Unread(6, 2, 8)
	assert.True(t, wrapped)
	assert.Equal(t, Span{Off: 6, N: 2}, first)
	assert.Equal(t, Span{Off: 0, N: 2}, second)
}

func TestUnreadNothingNew(t *testing.T) {
	first, second, wrapped := Unread(5, 5, 8)
	assert.False(t, wrapped)
	assert.Zero(t, first.N)
	assert.Zero(t, second.N)
}

func TestUnreadWrapToZero(t *testing.T) {
	first, second, wrapped := Unread(6, 0, 8)
	assert.True(t, wrapped)
	assert.Equal(t, Span{Off: 6, N: 2}, first)
	assert.Zero(t, second.N)
}

func TestUnreadCoversExactlyTheUnreadWords(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.Uint32Range(1, 4096).Draw(t, "capacity")
		read := rapid.Uint32Range(0, capacity-1).Draw(t, "read")
		write := rapid.Uint32Range(0, capacity-1).Draw(t, "write")

		first, second, wrapped := Unread(read, write, capacity)
		var got []uint32
		for _, s := range []Span{first, second} {
			assert.LessOrEqual(t, s.End(), capacity)
			for i := s.Off; i < s.End(); i++ {
				got = append(got, i)
			}
		}
		var want []uint32
		for i := read; i != write; i = (i + 1) % capacity {
			want = append(want, i)
		}
		assert.Equal(t, want, got)
		assert.Equal(t, write < read, wrapped)
	})
}

func TestInstructionsFollowHalvedIndices(t *testing.T) {
	first, second := Instructions(6, 2, 8)
	assert.Equal(t, Span{Off: 3, N: 1}, first)
	assert.Equal(t, Span{Off: 0, N: 1}, second)

	first, second = Instructions(2, 7, 8)
	assert.Equal(t, Span{Off: 1, N: 2}, first)
	assert.Zero(t, second.N)
}

func TestInstructionsKeepFillAtHalfRead(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := 2 * rapid.Uint32Range(1, 2048).Draw(t, "half")
		read := rapid.Uint32Range(0, capacity-1).Draw(t, "read")
		write := rapid.Uint32Range(0, capacity-1).Draw(t, "write")

		fill := read / 2
		first, second := Instructions(read, write, capacity)
		for _, s := range []Span{first, second} {
			if s.N == 0 {
				continue
			}
			assert.Equal(t, fill, s.Off, "span starts where the last one ended")
			assert.LessOrEqual(t, s.End(), capacity/2)
			fill = s.End() % (capacity / 2)
		}
		assert.Equal(t, write/2, fill)
	})
}

func TestDemaskOnlyClearsAndIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOf(rapid.Uint32()).Draw(t, "words")
		buf := make([]byte, len(words)*shmem.WordSize)
		for i, w := range words {
			shmem.Order.PutUint32(buf[i*shmem.WordSize:], w)
		}
		Demask(buf)
		for i, w := range words {
			got := shmem.Order.Uint32(buf[i*shmem.WordSize:])
			assert.Equal(t, w&SampleMask, got)
			assert.Zero(t, got&^w, "demask set a bit")
		}
		again := append([]byte(nil), buf...)
		Demask(again)
		assert.Equal(t, buf, again)
	})
}

func TestDemaskLeavesPartialWord(t *testing.T) {
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	Demask(buf)
	assert.Equal(t, []byte{0xff, 0x03, 0xff, 0x03, 0xff, 0xff}, buf)
}

func TestChannels(t *testing.T) {
	ch0, ch1 := Channels(0x02aa0155)
	assert.Equal(t, uint16(0x155), ch0)
	assert.Equal(t, uint16(0x2aa), ch1)
}
