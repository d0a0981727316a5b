package capture

// Span is the run of words [Off, Off+N) of a ring
type Span struct {
	Off, N uint32
}

// End is one past the last word of the span
func (s Span) End() uint32 {
	return s.Off + s.N
}

// Unread splits the words between read and write in a ring of capacity words
// into at most two contiguous spans, in the order they were written.  When
// write is behind read the producer has wrapped: first is the tail
// [read, capacity) and second the head [0, write).  Otherwise second is empty.
// read == write means nothing is unread.
func Unread(read, write, capacity uint32) (first, second Span, wrapped bool) {
	switch {
	case write == read:
		return Span{}, Span{}, false
	case write > read:
		return Span{Off: read, N: write - read}, Span{}, false
	default:
		return Span{Off: read, N: capacity - read}, Span{Off: 0, N: write}, true
	}
}

// Instructions gives the instruction ring spans that pair with the sample
// words between read and write.  Each instruction word serves two sample
// words, so the spans run over halved indices and the instruction fill
// position always equals read/2.
func Instructions(read, write, capacity uint32) (first, second Span) {
	r, w, c := read/2, write/2, capacity/2
	switch {
	case write == read:
		return Span{}, Span{}
	case write > read:
		return Span{Off: r, N: w - r}, Span{}
	default:
		return Span{Off: r, N: c - r}, Span{Off: 0, N: w}
	}
}
