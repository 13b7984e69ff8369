// Package nlog is the simulation's logging facade. Every worker logs
// through here rather than calling a backend directly, matching the
// call shape the teacher repo uses at its own call sites
// (nlog.Infoln/nlog.Errorf, gated by a verbosity check) — see
// xact/xs/tcb.go and xact/xs/tcobjs.go in the teacher repo. The backend
// here is github.com/rs/zerolog, grounded in the izerolog module of the
// joeycumines-go-utilpkg pack entry.
package nlog

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger  zerolog.Logger
	verbose int32
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}).
		With().Timestamp().Logger()
}

// SetOutput redirects the backend writer, e.g. to capture log lines.
func SetOutput(w io.Writer) {
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// SetVerbosity sets the global verbosity threshold consulted by FastV,
// mirroring the teacher's config.FastV(level, module) gate.
func SetVerbosity(v int) { atomic.StoreInt32(&verbose, int32(v)) }

// FastV reports whether logging at the given level is currently enabled.
// Call sites use it the same way the teacher guards expensive Infof calls:
// if nlog.FastV(5) { nlog.Infof(...) }
func FastV(level int) bool { return atomic.LoadInt32(&verbose) >= int32(level) }

// With returns a child logger scoped to a component (cell id, arm index,
// run correlation id) without overriding the facade's functions below.
func With(kv map[string]any) zerolog.Context {
	ctx := logger.With()
	for k, v := range kv {
		ctx = ctx.Interface(k, v)
	}
	return ctx
}

func Infof(format string, args ...any)    { logger.Info().Msgf(format, args...) }
func Warnf(format string, args ...any)    { logger.Warn().Msgf(format, args...) }
func Errorf(format string, args ...any)   { logger.Error().Msgf(format, args...) }
func Infoln(args ...any)                  { logger.Info().Msgf("%s", sprintAll(args...)) }
func Errorln(args ...any)                 { logger.Error().Msgf("%s", sprintAll(args...)) }
func Fatalf(format string, args ...any)   { logger.Fatal().Msgf(format, args...) }

func sprintAll(args ...any) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += toString(a)
	}
	return s
}

func toString(a any) string {
	if e, ok := a.(error); ok {
		return e.Error()
	}
	if s, ok := a.(string); ok {
		return s
	}
	return fmt.Sprint(a)
}
