package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/lestrrat-go/strftime"

	"github.com/nasa-jpl/prudaq/capture"
	"github.com/nasa-jpl/prudaq/instruction"
	"github.com/nasa-jpl/prudaq/pru"
	"github.com/nasa-jpl/prudaq/server/middleware/locker"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openSink opens the capture output.  "-" is stdout, which is not closed;
// anything else is a file name whose strftime verbs are expanded with now.
func openSink(path string, now time.Time) (io.WriteCloser, string, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, "stdout", nil
	}
	name, err := strftime.Format(path, now)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, "", err
	}
	return f, name, nil
}

func driver(c Config) pru.Driver {
	if c.Simulate {
		return &pru.Sim{Rate: c.SimRate}
	}
	return &pru.UIO{Device: c.UIO}
}

// buildMux makes the status server's router.  Requests are logged through
// logger rather than chi's default, which writes to stdout.
func buildMux(s *capture.Session, logger *log.Logger) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger.StandardLog(), NoColor: true}))
	l := locker.New()
	root.Use(l.Check)
	h := capture.NewHTTPSession(s)
	locker.Inject(h, l)
	h.RT().Bind(root)
	return root
}

func run(c Config, args []string, logger *log.Logger) error {
	if len(args) == 2 {
		c.PRU0, c.PRU1 = args[0], args[1]
	} else if len(args) != 0 {
		return errors.New("run takes both PRU firmware images or neither")
	}
	format, err := instruction.ValidateFormat(c.Format)
	if err != nil {
		return err
	}

	sink, name, err := openSink(c.Output, time.Now())
	if err != nil {
		return err
	}
	defer sink.Close()
	logger.Info("writing samples", "to", name)

	src, err := instruction.Open(c.Input, format, c.Wrap)
	if err != nil {
		return err
	}
	defer src.Close()
	logger.Info("instructions", "from", c.Input, "bytes", src.Size(), "wrap", c.Wrap)

	sess := capture.NewSession(driver(c), sink, src, capture.Options{
		Frequency:   c.Freq,
		InputSelect: c.InputSelect,
		Firmware:    [2]string{c.PRU0, c.PRU1},
		SampleBytes: c.SampleBytes,
		Drain: capture.Config{
			Loop:           c.Loop,
			Poll:           c.Poll,
			TelemetryEvery: c.TelemetryEvery,
			Logger:         logger,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.HTTP != "" {
		srv := &http.Server{Addr: c.HTTP, Handler: buildMux(sess, logger)}
		go func() {
			logger.Info("now listening for requests", "addr", c.HTTP)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	err = sess.Run(ctx)
	if err == nil {
		logger.Info("All done")
	}
	return err
}
