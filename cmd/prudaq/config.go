package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/spf13/pflag"

	"github.com/nasa-jpl/prudaq/capture"
	"github.com/nasa-jpl/prudaq/clock"
	"github.com/nasa-jpl/prudaq/instruction"
	"github.com/nasa-jpl/prudaq/pru"
)

// ConfigFileName is what it sounds like
var ConfigFileName = "prudaq.yml"

// Config is everything a capture run needs.  Values come from the defaults,
// then the config file, then the command line.
type Config struct {
	// Freq is the ADC/DAC clock in Hz
	Freq float64 `koanf:"freq" yaml:"freq"`

	// Input is the instruction file, "-" for DACdata.txt
	Input string `koanf:"input" yaml:"input"`

	// Format is raw or text
	Format string `koanf:"format" yaml:"format"`

	// Wrap restarts the instruction file, past its header, when it runs out
	Wrap bool `koanf:"wrap" yaml:"wrap"`

	// Loop keeps capturing past the first pass through the sample ring
	Loop bool `koanf:"loop" yaml:"loop"`

	// Output is the capture file, "-" for stdout.  strftime verbs are expanded.
	Output string `koanf:"output" yaml:"output"`

	Poll           time.Duration `koanf:"poll" yaml:"poll"`
	TelemetryEvery int           `koanf:"telemetry-every" yaml:"telemetry-every"`

	// HTTP is the status server listen address, empty for none
	HTTP string `koanf:"http" yaml:"http"`

	// Simulate replaces the PRUs with an in-process producer
	Simulate bool `koanf:"simulate" yaml:"simulate"`

	// SimRate is the simulated word rate, zero to follow the clock
	SimRate float64 `koanf:"sim-rate" yaml:"sim-rate"`

	LogLevel string `koanf:"log-level" yaml:"log-level"`

	// PRU0 and PRU1 are the firmware images
	PRU0 string `koanf:"pru0" yaml:"pru0"`
	PRU1 string `koanf:"pru1" yaml:"pru1"`

	// UIO is the uio_pruss device node
	UIO string `koanf:"uio" yaml:"uio"`

	// SampleBytes sizes the sample ring, zero for two thirds of the pool
	SampleBytes int `koanf:"sample-bytes" yaml:"sample-bytes"`

	// InputSelect drives the analog input switch
	InputSelect uint32 `koanf:"input-select" yaml:"input-select"`
}

func defaults() Config {
	return Config{
		Freq:           clock.DefaultFrequency,
		Input:          instruction.DefaultPath,
		Format:         "raw",
		Wrap:           true,
		Output:         "-",
		Poll:           capture.DefaultPoll,
		TelemetryEvery: capture.DefaultTelemetryEvery,
		LogLevel:       "info",
		PRU0:           "pru0.bin",
		PRU1:           "pru1.bin",
		UIO:            pru.DefaultDevice,
	}
}

func newFlagSet() *pflag.FlagSet {
	d := defaults()
	fs := pflag.NewFlagSet("prudaq", pflag.ContinueOnError)
	fs.StringP("config", "c", ConfigFileName, "config file")
	fs.Float64P("freq", "f", d.Freq, "ADC/DAC clock frequency, Hz")
	fs.StringP("input", "i", d.Input, "instruction file, - for "+instruction.DefaultPath)
	fs.String("format", d.Format, "instruction file format, raw or text")
	fs.Bool("wrap", d.Wrap, "restart the instruction file when it runs out")
	fs.BoolP("loop", "l", d.Loop, "capture until stopped instead of one pass of the ring")
	fs.StringP("output", "o", d.Output, "capture file, - for stdout, strftime verbs allowed")
	fs.Duration("poll", d.Poll, "sleep when no new samples are found")
	fs.Int("telemetry-every", d.TelemetryEvery, "drain iterations between telemetry checks")
	fs.String("http", d.HTTP, "status server address, empty to disable")
	fs.Bool("simulate", d.Simulate, "use a simulated PRU pair")
	fs.Float64("sim-rate", d.SimRate, "simulated words per second, 0 follows the clock")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error")
	fs.String("pru0", d.PRU0, "PRU0 firmware")
	fs.String("pru1", d.PRU1, "PRU1 firmware")
	fs.String("uio", d.UIO, "uio_pruss device")
	fs.Int("sample-bytes", d.SampleBytes, "sample ring size, 0 for two thirds of the pool")
	fs.Uint32("input-select", d.InputSelect, "analog input switch select")
	return fs
}

// setupconfig layers the defaults, the config file named by the config flag
// and the flags that were set into k.  A missing config file is not an error.
func setupconfig(k *koanf.Koanf, flags *pflag.FlagSet) error {
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return err
	}
	fn, err := flags.GetString("config")
	if err != nil {
		return err
	}
	if err := k.Load(file.Provider(fn), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") { // file missing, who cares
			return err
		}
	}
	return k.Load(posflag.Provider(flags, ".", k), nil)
}
