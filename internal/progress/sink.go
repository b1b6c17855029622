// Package progress provides the line-oriented progress sink the scan step
// reports to, plus adapters for writers, slog and fan-out.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Sink receives free-text progress lines.
type Sink interface {
	Line(line string)
}

// Func adapts a function to a Sink.
type Func func(line string)

// Line implements Sink.
func (f Func) Line(line string) {
	f(line)
}

// Printf formats a line and sends it to s.
func Printf(s Sink, format string, args ...any) {
	s.Line(fmt.Sprintf(format, args...))
}

// Discard drops every line.
var Discard Sink = Func(func(string) {})

// WriterSink writes each line to an io.Writer followed by a newline.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Line implements Sink.
func (s *WriterSink) Line(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.w, strings.TrimRight(line, "\r\n")+"\n")
}

// SlogSink forwards lines to a logger at debug level.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink logging through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Line implements Sink.
func (s *SlogSink) Line(line string) {
	s.logger.Debug("progress", "line", line)
}

// Multi fans each line out to every sink.
func Multi(sinks ...Sink) Sink {
	return Func(func(line string) {
		for _, s := range sinks {
			if s != nil {
				s.Line(line)
			}
		}
	})
}

// Recorder keeps every line in memory.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Line implements Sink.
func (r *Recorder) Line(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// String returns the recorded lines joined by newlines.
func (r *Recorder) String() string {
	return strings.Join(r.Lines(), "\n")
}

// Contains reports whether any recorded line contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, l := range r.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// LineWriter is an io.Writer that splits written bytes into lines and
// forwards each complete line to a Sink. Call Flush to emit a trailing
// partial line.
type LineWriter struct {
	mu   sync.Mutex
	sink Sink
	buf  []byte
}

// NewLineWriter creates a LineWriter for sink.
func NewLineWriter(sink Sink) *LineWriter {
	return &LineWriter{sink: sink}
}

// Write implements io.Writer.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := indexNewline(w.buf)
		if i < 0 {
			break
		}
		w.sink.Line(strings.TrimRight(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.sink.Line(strings.TrimRight(string(w.buf), "\r"))
		w.buf = nil
	}
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}
