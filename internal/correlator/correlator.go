// Package correlator runs slow answer computations off the update path and
// delivers exactly one outcome per submission back to its conversation.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
)

var (
	// ErrCommunication is the outcome when the computation could not report a
	// result: it panicked, or its transport failed.
	ErrCommunication = errors.New("correlator: communication failure")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("correlator: closed")
)

// Outcome is the terminal result of one submission. Exactly one of Value and
// Err is meaningful.
type Outcome struct {
	Value string
	Err   error
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool { return o.Err != nil }

func (o Outcome) label() string {
	switch {
	case o.Err == nil:
		return "ok"
	case errors.Is(o.Err, ErrCommunication):
		return "comm_fail"
	default:
		return "fail"
	}
}

// ComputeFunc performs the external call for payload.
type ComputeFunc func(ctx context.Context, payload string) (string, error)

// Options configure a Correlator.
type Options struct {
	// Compute is the slow call. Required.
	Compute ComputeFunc
	// Notify sends the interim notice before work starts. Required.
	Notify func(ctx context.Context, conversationID int64) error
	// Deliver sends the outcome into the conversation. Required.
	Deliver func(ctx context.Context, conversationID int64, o Outcome) error
	// Wrap decorates Compute, e.g. with retries or deadlines. Optional.
	Wrap func(ComputeFunc) ComputeFunc
}

// Correlator pairs each submission with a single-use completion channel.
type Correlator struct {
	compute ComputeFunc
	notify  func(ctx context.Context, conversationID int64) error
	deliver func(ctx context.Context, conversationID int64, o Outcome) error

	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// New validates opts and returns a Correlator.
func New(opts Options) (*Correlator, error) {
	if opts.Compute == nil || opts.Notify == nil || opts.Deliver == nil {
		return nil, errors.New("correlator: compute, notify and deliver are required")
	}
	compute := opts.Compute
	if opts.Wrap != nil {
		compute = opts.Wrap(compute)
	}
	return &Correlator{compute: compute, notify: opts.Notify, deliver: opts.Deliver}, nil
}

// pending is the producer/consumer pair of one submission. done has capacity
// one and is closed by the producer; a close without a value means the
// producer died.
type pending struct {
	conversationID int64
	done           chan Outcome
}

// Submit sends the interim notice and starts the computation. It returns once
// the work is launched. A notify error is returned and nothing is launched.
func (c *Correlator) Submit(ctx context.Context, conversationID int64, payload string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	if err := c.notify(ctx, conversationID); err != nil {
		c.wg.Done()
		return fmt.Errorf("correlator: notify: %w", err)
	}

	// The update context ends with its handler; the work must outlive it.
	workCtx := context.WithoutCancel(ctx)
	p := &pending{conversationID: conversationID, done: make(chan Outcome, 1)}
	n := c.inFlight.Add(1)
	logger.Debug(ctx, logger.CompCorrelator, "submit", slog.Int64("in_flight", n))

	go c.produce(workCtx, p, payload)
	go c.consume(workCtx, p)
	return nil
}

func (c *Correlator) produce(ctx context.Context, p *pending, payload string) {
	defer close(p.done)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, logger.CompCorrelator, "compute.panic",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(fmt.Sprint(r), 256)),
			)
		}
	}()
	value, err := c.compute(ctx, payload)
	p.done <- Outcome{Value: value, Err: err}
}

func (c *Correlator) consume(ctx context.Context, p *pending) {
	defer c.wg.Done()
	start := time.Now()

	o, ok := <-p.done
	if !ok {
		o = Outcome{Err: ErrCommunication}
	}
	c.inFlight.Add(-1)

	attrs := []slog.Attr{
		slog.String("outcome", o.label()),
		slog.Duration("duration", logger.Took(start)),
	}
	if o.Err != nil {
		attrs = append(attrs, logger.Err(o.Err))
	}
	logger.Info(ctx, logger.CompCorrelator, "outcome", attrs...)

	if err := c.deliver(ctx, p.conversationID, o); err != nil {
		logger.Warn(ctx, logger.CompCorrelator, "deliver",
			slog.String("status", "fail"),
			logger.Err(err),
		)
	}
}

// InFlight returns the number of computations without an outcome yet.
func (c *Correlator) InFlight() int { return int(c.inFlight.Load()) }

// Close rejects new submissions and waits until every launched one has been
// delivered or ctx ends.
func (c *Correlator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("correlator: close: %w", ctx.Err())
	}
}
