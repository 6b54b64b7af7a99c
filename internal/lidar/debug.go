package lidar

import (
	"io"
	"log"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// NewLogWriters routes ops to w always, diag when verbose, and trace when
// trace is set. A nil w disables every stream.
func NewLogWriters(w io.Writer, verbose, trace bool) LogWriters {
	lw := LogWriters{Ops: w}
	if verbose {
		lw.Diag = w
	}
	if trace {
		lw.Trace = w
	}
	return lw
}

// StreamSetter is the SetLogWriters signature exported by each layer package.
type StreamSetter func(ops, diag, trace io.Writer)

// Streams is one package's ops/diag/trace logger triple.
//
//   - ops: actionable warnings, errors, data loss
//   - diag: day-to-day diagnostics, build summaries, tuning context
//   - trace: high-frequency packet and point telemetry
//
// The zero value has every stream disabled.
type Streams struct {
	prefix string

	mu    sync.RWMutex
	ops   *log.Logger
	diag  *log.Logger
	trace *log.Logger
}

// NewStreams returns a disabled Streams whose loggers will use prefix.
func NewStreams(prefix string) *Streams {
	return &Streams{prefix: prefix}
}

// Set installs writers for the three streams. Nil disables a stream.
func (s *Streams) Set(ops, diag, trace io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = newLogger(s.prefix, ops)
	s.diag = newLogger(s.prefix, diag)
	s.trace = newLogger(s.prefix, trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func (s *Streams) printf(pick func(*Streams) *log.Logger, format string, args []interface{}) {
	s.mu.RLock()
	l := pick(s)
	s.mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Opsf logs to the ops stream.
func (s *Streams) Opsf(format string, args ...interface{}) {
	s.printf(func(s *Streams) *log.Logger { return s.ops }, format, args)
}

// Diagf logs to the diag stream.
func (s *Streams) Diagf(format string, args ...interface{}) {
	s.printf(func(s *Streams) *log.Logger { return s.diag }, format, args)
}

// Tracef logs to the trace stream.
func (s *Streams) Tracef(format string, args ...interface{}) {
	s.printf(func(s *Streams) *log.Logger { return s.trace }, format, args)
}

// TraceEnabled reports whether the trace stream is on, so hot loops can skip
// formatting entirely.
func (s *Streams) TraceEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trace != nil
}

var streams = NewStreams("[lidar] ")

// SetLogWriters configures this package's streams and forwards the same
// writers to every setter given, so the binary configures the stack in one
// call. Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters, setters ...StreamSetter) {
	streams.Set(w.Ops, w.Diag, w.Trace)
	for _, set := range setters {
		if set != nil {
			set(w.Ops, w.Diag, w.Trace)
		}
	}
}

// Opsf logs to the ops stream (actionable warnings, errors, lifecycle events).
func Opsf(format string, args ...interface{}) { streams.Opsf(format, args...) }

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) { streams.Diagf(format, args...) }

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) { streams.Tracef(format, args...) }

// DO NOT add Debugf, that's an anti-pattern. Each callsite needs to use Opsf, Diagf, or Tracef.
