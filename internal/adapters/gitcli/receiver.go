package gitcli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// OutputReceiver consumes one output stream of a running git process.
//
// Initialize is called once per run while the process is alive; the
// receiver must start consuming the stream without blocking the caller.
// Close is called once after the process has exited; it waits for the
// stream to drain and finalizes any buffered partial record.
type OutputReceiver interface {
	Initialize(proc *Process, stream io.Reader) error
	Close() error
}

const receiverChunkSize = 32 * 1024

// pump is the reading half shared by the receivers: it copies stream into
// sink on its own goroutine until EOF.
type pump struct {
	mu     sync.Mutex
	active bool
	done   chan struct{}
	err    error
	proc   *Process
}

func (p *pump) begin(proc *Process, stream io.Reader, sink io.Writer, reset func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return fmt.Errorf("%w: receiver already attached to process %s", domain.ErrInvalidState, p.proc.ID())
	}
	reset()
	p.active = true
	p.proc = proc
	p.err = nil
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		buf := make([]byte, receiverChunkSize)
		_, err := io.CopyBuffer(sink, stream, buf)
		if err != nil && !errors.Is(err, io.EOF) {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
		}
	}(p.done)
	return nil
}

// end waits for the pump to hit EOF and detaches it.
func (p *pump) end() error {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return fmt.Errorf("%w: receiver is not attached", domain.ErrInvalidState)
	}
	done := p.done
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	p.proc = nil
	return p.err
}

// LineSplitter cuts a byte stream into records separated by a delimiter,
// buffering partial records across writes. It is not safe for concurrent use.
type LineSplitter struct {
	delim   byte
	pending []byte
	emit    func(string)
}

// NewLineSplitter creates a splitter calling emit for each complete record.
// With '\n' as delimiter a trailing '\r' is stripped from each line.
func NewLineSplitter(delim byte, emit func(string)) *LineSplitter {
	return &LineSplitter{delim: delim, emit: emit}
}

// Write consumes a chunk of the stream.
func (s *LineSplitter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, s.delim)
		if i < 0 {
			s.pending = append(s.pending, p...)
			break
		}
		var rec string
		if len(s.pending) > 0 {
			s.pending = append(s.pending, p[:i]...)
			rec = string(s.pending)
			s.pending = s.pending[:0]
		} else {
			rec = string(p[:i])
		}
		s.deliver(rec)
		p = p[i+1:]
	}
	return n, nil
}

// Flush delivers the trailing partial record, if any.
func (s *LineSplitter) Flush() {
	if len(s.pending) == 0 {
		return
	}
	rec := string(s.pending)
	s.pending = s.pending[:0]
	s.deliver(rec)
}

// Reset drops any buffered partial record.
func (s *LineSplitter) Reset() {
	s.pending = s.pending[:0]
}

func (s *LineSplitter) deliver(rec string) {
	if s.delim == '\n' {
		rec = strings.TrimSuffix(rec, "\r")
	}
	s.emit(rec)
}

// LineReceiver delivers complete records to a callback in arrival order.
// The callback runs on the receiver's reading goroutine and must return
// quickly; slow callbacks stall the pipe and eventually the git process.
type LineReceiver struct {
	pump
	splitter *LineSplitter
}

// NewLineReceiver creates a receiver for newline-terminated text.
func NewLineReceiver(onLine func(line string)) *LineReceiver {
	return NewRecordReceiver('\n', onLine)
}

// NewRecordReceiver creates a receiver for records ending in delim,
// typically NUL for git's -z output modes.
func NewRecordReceiver(delim byte, onRecord func(record string)) *LineReceiver {
	return &LineReceiver{splitter: NewLineSplitter(delim, onRecord)}
}

// Initialize starts consuming stream.
func (r *LineReceiver) Initialize(proc *Process, stream io.Reader) error {
	return r.begin(proc, stream, r.splitter, r.splitter.Reset)
}

// Close waits for the stream to drain and flushes the last partial record.
func (r *LineReceiver) Close() error {
	err := r.end()
	r.splitter.Flush()
	return err
}

// RawReceiver captures the whole stream for one-shot parsing.
type RawReceiver struct {
	pump
	buf bytes.Buffer
}

// NewRawReceiver creates an empty capture receiver.
func NewRawReceiver() *RawReceiver {
	return &RawReceiver{}
}

// Initialize starts capturing stream, discarding any earlier payload.
func (r *RawReceiver) Initialize(proc *Process, stream io.Reader) error {
	return r.begin(proc, stream, &r.buf, r.buf.Reset)
}

// Close waits for the stream to drain.
func (r *RawReceiver) Close() error {
	return r.end()
}

// Bytes returns the captured payload. Only valid after Close.
func (r *RawReceiver) Bytes() []byte {
	return r.buf.Bytes()
}

// String returns the captured payload as text. Only valid after Close.
func (r *RawReceiver) String() string {
	return r.buf.String()
}
