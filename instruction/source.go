/*Package instruction streams DAC instruction words from a file into the
instruction ring the PRUs consume.

An instruction file is a sequence of 32-bit words.  The first two are
reserved: a reset instruction and the initial frequency setup.  When the file
runs out, reading resumes immediately after them, so a file of header plus N
words plays its N words forever.
*/
package instruction

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nasa-jpl/prudaq/shmem"
)

const (
	// HeaderWords is the number of reserved words at the start of a source
	HeaderWords = 2

	// ResetOffset is the byte offset reading resumes from after exhaustion
	ResetOffset = HeaderWords * shmem.WordSize

	// MinSourceBytes is the shortest usable source: the header plus one word
	MinSourceBytes = ResetOffset + shmem.WordSize

	// DefaultPath is the file read when the input is given as "-"
	DefaultPath = "DACdata.txt"
)

// Format is the encoding of an instruction file
type Format int

const (
	// Raw is little-endian binary 32-bit words
	Raw Format = iota

	// Text is one word per line written in base 2, optionally prefixed with 0b.
	// Blank lines and lines starting with # are skipped.
	Text
)

var (
	// ErrSourceTooShort is generated when a source cannot supply a single word past its header
	ErrSourceTooShort = errors.New("DAC instructions source too short: make sure it's at least 12 bytes long")

	// ErrSourceExhausted is generated when a source runs out and wrapping is disabled
	ErrSourceExhausted = errors.New("DAC instructions source exhausted and wrapping is disabled")
)

// ValidateFormat converts s, a member of {raw, text}, to a Format
func ValidateFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "raw", "bin", "":
		return Raw, nil
	case "text", "txt":
		return Text, nil
	default:
		return -1, fmt.Errorf("instruction format must be a member of {raw, text}, got %q", s)
	}
}

// FormatString converts a Format to its name
func FormatString(f Format) string {
	switch f {
	case Raw:
		return "raw"
	case Text:
		return "text"
	default:
		return ""
	}
}

// Source is a seekable stream of instruction words.  It is not concurrent
// safe; the drain loop is its only reader.
type Source struct {
	rs     io.ReadSeeker
	br     *bufio.Reader
	closer io.Closer

	size   int64
	cursor int64
	wraps  int
	word   [shmem.WordSize]byte

	// Wrap selects what happens at the end of the stream: resume after the
	// header (true) or fail with ErrSourceExhausted (false)
	Wrap bool
}

// NewSource reads words from rs starting at its beginning
func NewSource(rs io.ReadSeeker, wrap bool) (*Source, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err = rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return &Source{rs: rs, br: bufio.NewReader(rs), size: size, Wrap: wrap}, nil
}

// Open opens the instruction file at path.  "-" selects DefaultPath.
func Open(path string, format Format, wrap bool) (*Source, error) {
	if path == "-" || path == "" {
		path = DefaultPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open instruction file: %w", err)
	}
	switch format {
	case Text:
		defer f.Close()
		buf, err := ParseText(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return NewSource(bytes.NewReader(buf), wrap)
	default:
		s, err := NewSource(f, wrap)
		if err != nil {
			f.Close()
			return nil, err
		}
		s.closer = f
		return s, nil
	}
}

// ParseText reads base-2 text words, one per line, and returns them encoded
// as raw little-endian words
func ParseText(r io.Reader) ([]byte, error) {
	var (
		out  []byte
		word [shmem.WordSize]byte
		line int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0b"), "0B")
		s = strings.ReplaceAll(s, "_", "")
		v, err := strconv.ParseUint(s, 2, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		shmem.Order.PutUint32(word[:], uint32(v))
		out = append(out, word[:]...)
	}
	return out, sc.Err()
}

// Size is the length of the source in bytes
func (s *Source) Size() int64 {
	return s.size
}

// Cursor is the byte offset of the next word
func (s *Source) Cursor() int64 {
	return s.cursor
}

// Wraps is the number of times reading has resumed after the header
func (s *Source) Wraps() int {
	return s.wraps
}

func (s *Source) read() (uint32, bool, error) {
	_, err := io.ReadFull(s.br, s.word[:])
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	s.cursor += shmem.WordSize
	return shmem.Order.Uint32(s.word[:]), true, nil
}

func (s *Source) rewind() error {
	if _, err := s.rs.Seek(ResetOffset, io.SeekStart); err != nil {
		return err
	}
	s.br.Reset(s.rs)
	s.cursor = ResetOffset
	s.wraps++
	return nil
}

// Next returns the next instruction word, resuming after the header when the
// stream is exhausted
func (s *Source) Next() (uint32, error) {
	if s.size < MinSourceBytes {
		return 0, ErrSourceTooShort
	}
	w, ok, err := s.read()
	if err != nil || ok {
		return w, err
	}
	if !s.Wrap {
		return 0, ErrSourceExhausted
	}
	if err = s.rewind(); err != nil {
		return 0, err
	}
	w, ok, err = s.read()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrSourceTooShort
	}
	return w, nil
}

// Close closes the underlying file, if there is one
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
