package capture

import "github.com/nasa-jpl/prudaq/shmem"

// SampleMask keeps the low 10 bits of each 16-bit half of a sample word.  The
// other six bits of each half record the clock and input select state.
const SampleMask = 0x03ff03ff

// Demask clears every non-sample bit of the words in buf, in place.  A
// trailing partial word is left alone.
func Demask(buf []byte) {
	n := len(buf) / shmem.WordSize * shmem.WordSize
	for i := 0; i < n; i += shmem.WordSize {
		shmem.Order.PutUint32(buf[i:], shmem.Order.Uint32(buf[i:])&SampleMask)
	}
}

// Channels unpacks a demasked word into its two samples.  Channel 0 is the low half.
func Channels(w uint32) (ch0, ch1 uint16) {
	return uint16(w & 0x3ff), uint16((w >> 16) & 0x3ff)
}
