package logger

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// sink receives every line at or above minLevel.
type sink struct {
	w        *bufio.Writer
	minLevel slog.Level
}

type entry struct {
	level slog.Level
	data  []byte
}

// asyncWriter fans log lines out to sinks from a single goroutine.
type asyncWriter struct {
	queue    chan entry
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	sinks    []sink
	writeErr error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	outs := make([]output, 0, len(writers))
	for _, w := range writers {
		outs = append(outs, output{w: w, minLevel: slog.LevelDebug})
	}
	return newLeveledWriter(outs, bufSize)
}

type output struct {
	w        io.Writer
	minLevel slog.Level
}

func newLeveledWriter(outs []output, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		queue:    make(chan entry, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, o := range outs {
		if o.w == nil {
			continue
		}
		aw.sinks = append(aw.sinks, sink{w: bufio.NewWriterSize(o.w, bufSize), minLevel: o.minLevel})
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	for {
		select {
		case e, ok := <-w.queue:
			if !ok {
				w.flushAll()
				close(w.done)
				return
			}
			w.setErr(w.writeAll(e))
		case ack := <-w.flushReq:
			ack <- w.flushAll()
		}
	}
}

// Write enqueues a line; blocks when the queue is full so nothing is dropped.
func (w *asyncWriter) Write(level slog.Level, p []byte) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- entry{level: level, data: append([]byte(nil), p...)}
	return nil
}

// Flush waits until every queued line reached its sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushReq <- ack:
		return <-ack
	case <-w.done:
		return w.getErr()
	}
}

// Close drains the queue and reports the first write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.queue) })
	<-w.done
	return w.getErr()
}

func (w *asyncWriter) writeAll(e entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if e.level < s.minLevel {
			continue
		}
		if _, err := s.w.Write(e.data); err != nil {
			return err
		}
		if err := s.w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if err := s.w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) getErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}
