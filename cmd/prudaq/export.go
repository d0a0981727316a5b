package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/prudaq/capture"
)

// fitsName is in with its extension replaced by .fits
func fitsName(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".fits"
}

func export(c Config, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("export takes a capture file and optionally the FITS file to write")
	}
	in, out := args[0], fitsName(args[0])
	if len(args) == 2 {
		out = args[1]
	}
	r, err := os.Open(in)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.Create(out)
	if err != nil {
		return err
	}
	defer w.Close()
	cards := []fitsio.Card{
		{Name: "FREQ", Value: c.Freq, Comment: "sample clock, Hz"},
		{Name: "INPUTSEL", Value: int(c.InputSelect), Comment: "analog input select"},
		{Name: "ORIGIN", Value: filepath.Base(in)},
	}
	if err = capture.ExportFits(w, r, cards); err != nil {
		return err
	}
	return w.Close()
}
