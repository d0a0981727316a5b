package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf"
	"github.com/spf13/pflag"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	k = koanf.New(".")
)

func root() {
	str := `prudaq captures from the PRUDAQ ADC/DAC cape through the BeagleBone PRUs.
The PRUs stream sample pairs into a ring in DDR while clocking instructions
from a file out to the DAC; prudaq drains the ring into a file or stdout.

Usage:
	prudaq <command> [flags] [pru0.bin pru1.bin]

Commands:
	run
	export
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `prudaq is amenable to configuration via its .yml file (prudaq.yml, or -c) and flags.
Flags win over the file, and the file over the defaults.  mkconf writes the
defaults to prudaq.yml and conf prints the configuration in effect.

run starts both PRUs and captures.  Without --loop it stops after one pass
through the sample ring; with it, on SIGINT, SIGTERM, or POST /stop to the
status server (--http).  The status server also serves GET /status,
/throughput, /bytes-read and /running, and POST /lock {"bool": true} refuses
/stop until unlocked.

Samples are written as little endian 32-bit words, channel 0 in the low 10
bits and channel 1 in bits 16-25.  export converts such a capture into a FITS
image, one row per channel:
	prudaq export capture.bin [capture.fits]

The instruction file (-i) starts with two header words that are only sent once.
Its words go to the DAC at half the sample rate.  --format text reads one
binary word per line instead of raw little endian words.

The clock (-f) must be 10MHz or less; above 5MHz the DMA may not keep up.
--simulate runs without a cape, with an in-process producer writing a ramp.`
	fmt.Println(str)
}

func mkconf() error {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		return err
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		return err
	}
	defer f.Close()
	return yml.NewEncoder(f).Encode(c)
}

func printconf() error {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		return err
	}
	return yml.NewEncoder(os.Stdout).Encode(c)
}

func pversion() {
	fmt.Printf("prudaq version %v\n", Version)
}

// newLogger logs to stderr so stdout is free for samples
func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "prudaq"})
	l.SetLevel(lvl)
	return l, nil
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	cmd := strings.ToLower(args[1])
	flags := newFlagSet()
	if err := flags.Parse(args[2:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		log.Fatal("parsing flags", "err", err)
	}
	if err := setupconfig(k, flags); err != nil {
		log.Fatal("loading config", "err", err)
	}
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal("decoding config", "err", err)
	}
	logger, err := newLogger(c.LogLevel)
	if err != nil {
		log.Fatal("bad log level", "err", err)
	}

	switch cmd {
	case "help":
		help()
	case "mkconf":
		err = mkconf()
	case "conf":
		err = printconf()
	case "version":
		pversion()
	case "run":
		err = run(c, flags.Args(), logger)
	case "export":
		err = export(c, flags.Args())
	default:
		root()
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		logger.Error(cmd+" failed", "err", err)
		os.Exit(1)
	}
}
