package capture

import (
	"bytes"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFitsSplitsChannels(t *testing.T) {
	capture := encode(0xfc01fc02, 0x03ff0000, 0x00050007)
	var buf bytes.Buffer
	meta := []fitsio.Card{{Name: "FREQ", Value: 10e6, Comment: "sample clock, Hz"}}
	require.NoError(t, WriteFits(&buf, meta, capture))

	f, err := fitsio.Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	img, ok := f.HDU(0).(fitsio.Image)
	require.True(t, ok)
	assert.Equal(t, []int{3, 2}, img.Header().Axes())
	assert.EqualValues(t, 3, img.Header().Get("NSAMPLES").Value)

	var data []int16
	require.NoError(t, img.Read(&data))
	assert.Equal(t, []int16{2, 0, 7, 1, 0x3ff, 5}, data)
}

func TestWriteFitsEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteFits(&buf, nil, []byte{1, 2, 3}), ErrEmptyCapture)
	assert.ErrorIs(t, ExportFits(&buf, bytes.NewReader(nil), nil), ErrEmptyCapture)
}
