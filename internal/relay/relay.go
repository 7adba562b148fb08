// Package relay forwards the monitored process's stdout and stderr to the
// dashboard. Output is re-chunked into whole lines so a write that arrives
// split across pipe reads never shows up as two partial rows, and stdout and
// stderr lines never interleave mid-line.
package relay

import (
	"io"
	"sync"
)

// DefaultBuffer is the default line channel capacity.
const DefaultBuffer = 1024

// Line is one complete output line from the monitored process.
type Line struct {
	Text   string
	Stderr bool
}

// Relay multiplexes the process's stdout and stderr into a single ordered
// stream of lines.
type Relay struct {
	lines chan Line
	done  chan struct{}
	once  sync.Once

	mu          sync.Mutex
	stdoutLines int
	stderrLines int

	stdout *lineWriter
	stderr *lineWriter
}

// New creates a relay with the given line channel capacity. A capacity <= 0
// falls back to DefaultBuffer.
func New(buffer int) *Relay {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	r := &Relay{
		lines: make(chan Line, buffer),
		done:  make(chan struct{}),
	}
	r.stdout = &lineWriter{relay: r, stderr: false}
	r.stderr = &lineWriter{relay: r, stderr: true}
	return r
}

// Stdout returns the writer to attach to the process's stdout.
func (r *Relay) Stdout() io.Writer { return r.stdout }

// Stderr returns the writer to attach to the process's stderr.
func (r *Relay) Stderr() io.Writer { return r.stderr }

// Lines returns the channel complete lines are delivered on. The channel is
// never closed; Done signals that no more lines will arrive.
func (r *Relay) Lines() <-chan Line { return r.lines }

// Done is closed once the relay has been closed and all output flushed.
func (r *Relay) Done() <-chan struct{} { return r.done }

// StdoutLines returns the number of stdout lines relayed so far.
func (r *Relay) StdoutLines() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stdoutLines
}

// StderrLines returns the number of stderr lines relayed so far.
func (r *Relay) StderrLines() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stderrLines
}

// Close flushes any trailing output that did not end in a newline and marks
// the stream finished. It is safe to call while the pipe pumps are still
// writing; lines arriving after the flush are dropped.
func (r *Relay) Close() {
	r.once.Do(func() {
		r.stdout.flush()
		r.stderr.flush()
		close(r.done)
	})
}

// emit delivers one complete line. If the consumer has gone away the line is
// dropped rather than blocking the pipe pump forever.
func (r *Relay) emit(text string, stderr bool) {
	r.mu.Lock()
	if stderr {
		r.stderrLines++
	} else {
		r.stdoutLines++
	}
	r.mu.Unlock()

	select {
	case r.lines <- Line{Text: text, Stderr: stderr}:
	case <-r.done:
	}
}

// lineWriter implements io.Writer with line buffering. Each writer is fed by
// a single pipe pump goroutine, but flush can arrive from whichever goroutine
// closes the relay while a killed process's pump is still draining, so buf is
// locked.
type lineWriter struct {
	relay  *Relay
	stderr bool

	mu  sync.Mutex
	buf []byte
}

// Write buffers data and emits complete lines without their trailing
// newline. It always reports the full length as written. Emission happens
// outside the lock so a full line channel can never wedge flush.
func (w *lineWriter) Write(p []byte) (n int, err error) {
	n = len(p)

	w.mu.Lock()
	w.buf = append(w.buf, p...)

	var lines []string
	for {
		idx := -1
		for i, b := range w.buf {
			if b == '\n' {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}

		lines = append(lines, string(w.buf[:idx]))
		w.buf = w.buf[idx+1:]
	}
	w.mu.Unlock()

	for _, line := range lines {
		w.relay.emit(line, w.stderr)
	}
	return n, nil
}

// flush emits any trailing partial line.
func (w *lineWriter) flush() {
	w.mu.Lock()
	var line string
	if len(w.buf) > 0 {
		line = string(w.buf)
		w.buf = nil
	}
	w.mu.Unlock()

	if line != "" {
		w.relay.emit(line, w.stderr)
	}
}
