package middleware

import (
	"context"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"
)

// Counters tracks outbound activity produced while handling one update.
type Counters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

// Add records one delivered message and whether it carried a keyboard.
func (c *Counters) Add(withKeyboard bool) {
	if c == nil {
		return
	}
	c.messages.Add(1)
	if withKeyboard {
		c.keyboard.Store(true)
	}
}

// Snapshot returns the message count and keyboard flag.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	return int(c.messages.Load()), c.keyboard.Load()
}

type countersKey struct{}

// WithCounters returns ctx carrying a fresh Counters.
func WithCounters(ctx context.Context) (context.Context, *Counters) {
	c := &Counters{}
	return context.WithValue(ctx, countersKey{}, c), c
}

// CountersFrom returns the counters stored by WithCounters, or nil.
func CountersFrom(ctx context.Context) *Counters {
	c, _ := ctx.Value(countersKey{}).(*Counters)
	return c
}

// MessageMetricsMiddleware attaches per-update counters to the handler context.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, counters := WithCounters(tghelpers.BuildContext(c))
		tghelpers.StoreContext(c, ctx)
		c.Set("metrics", counters)
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence for the current update.
func GetCounters(c tele.Context) (int, bool) {
	counters, _ := c.Get("metrics").(*Counters)
	return counters.Snapshot()
}
