package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/prudaq/shmem"
)

// ErrEmptyCapture is generated when a capture holds no whole sample words
var ErrEmptyCapture = errors.New("capture holds no samples")

// WriteFits streams a capture of packed, demasked sample words to w as a FITS
// image two rows tall, one row per channel, one column per sample.  Samples
// are 10 bits and fit a 16-bit image without scaling.
func WriteFits(w io.Writer, metadata []fitsio.Card, capture []byte) error {
	n := len(capture) / shmem.WordSize
	if n == 0 {
		return ErrEmptyCapture
	}
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(16, []int{n, 2})
	defer im.Close()
	metadata = append(metadata, fitsio.Card{Name: "NSAMPLES", Value: n, Comment: "samples per channel"})
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int16, 2*n)
	for i := 0; i < n; i++ {
		ch0, ch1 := Channels(shmem.Order.Uint32(capture[i*shmem.WordSize:]) & SampleMask)
		ints[i] = int16(ch0)
		ints[n+i] = int16(ch1)
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// ExportFits reads a whole raw capture from r and writes it to w with WriteFits
func ExportFits(w io.Writer, r io.Reader, metadata []fitsio.Card) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading capture: %w", err)
	}
	return WriteFits(w, metadata, raw)
}
