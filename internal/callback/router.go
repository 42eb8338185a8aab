package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram"
)

var (
	// ErrDuplicateEntry is returned by New when two entries share a key.
	ErrDuplicateEntry = errors.New("callback: duplicate router entry")
	// ErrInvalidEntry is returned by New for an entry without key or handler.
	ErrInvalidEntry = errors.New("callback: invalid router entry")
)

// Query is a decoded callback press.
type Query struct {
	ConversationID int64
	UserID         int64
	FirstName      string
	// Message is the message carrying the pressed button.
	Message telegram.MessageRef
	Raw     string
	Payload Payload
}

// Handler reacts to a routed callback.
type Handler interface {
	HandleCallback(ctx context.Context, q Query) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, q Query) error

func (f HandlerFunc) HandleCallback(ctx context.Context, q Query) error { return f(ctx, q) }

// MatchKind tells how an Entry key is compared with a payload.
type MatchKind int

const (
	Exact MatchKind = iota
	PrefixFamily
)

func (k MatchKind) String() string {
	if k == PrefixFamily {
		return "prefix"
	}
	return "exact"
}

// Entry binds a key to a handler.
type Entry struct {
	Match   MatchKind
	Key     string
	Name    string
	Handler Handler
}

// Prefix declares a prefix-family entry.
func Prefix(prefix string, h Handler) Entry {
	return Entry{Match: PrefixFamily, Key: prefix, Name: strings.TrimSuffix(prefix, "_"), Handler: h}
}

// Literal declares an exact-match entry.
func Literal(token string, h Handler) Entry {
	return Entry{Match: Exact, Key: token, Name: token, Handler: h}
}

// Router resolves payloads. Prefix families are tried in the order given to
// New and always win over exact entries. A Router is immutable and safe for
// concurrent use.
type Router struct {
	prefixes []Entry
	exact    map[string]Entry
}

// New builds a Router from entries, keeping the relative order of prefix entries.
func New(entries ...Entry) (*Router, error) {
	r := &Router{exact: make(map[string]Entry)}
	seenPrefix := make(map[string]struct{})
	for _, e := range entries {
		if e.Key == "" || e.Handler == nil {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidEntry, e.Match, e.Key)
		}
		if e.Name == "" {
			e.Name = e.Key
		}
		switch e.Match {
		case PrefixFamily:
			if _, dup := seenPrefix[e.Key]; dup {
				return nil, fmt.Errorf("%w: prefix %q", ErrDuplicateEntry, e.Key)
			}
			seenPrefix[e.Key] = struct{}{}
			r.prefixes = append(r.prefixes, e)
		case Exact:
			if _, dup := r.exact[e.Key]; dup {
				return nil, fmt.Errorf("%w: exact %q", ErrDuplicateEntry, e.Key)
			}
			r.exact[e.Key] = e
		default:
			return nil, fmt.Errorf("%w: match kind %d", ErrInvalidEntry, e.Match)
		}
	}
	return r, nil
}

// Resolve returns the entry for raw.
func (r *Router) Resolve(raw string) (Entry, bool) {
	for _, e := range r.prefixes {
		if strings.HasPrefix(raw, e.Key) {
			return e, true
		}
	}
	e, ok := r.exact[raw]
	return e, ok
}

// Dispatch decodes q.Raw once, then runs the resolved handler and returns its
// entry. A miss is logged and reported as handled=false with a nil error.
func (r *Router) Dispatch(ctx context.Context, q Query) (e Entry, handled bool, err error) {
	e, ok := r.Resolve(q.Raw)
	if !ok {
		logger.Debug(ctx, logger.CompRouter, "callback.miss",
			slog.String("outcome", "ignored"),
			slog.String("reason", "not_found"),
			slog.String("payload", logger.SanitizeLimit(q.Raw, 64)),
		)
		return Entry{}, false, nil
	}
	q.Payload = Decode(q.Raw)
	logger.Debug(ctx, logger.CompRouter, "callback.resolve",
		slog.String("handler", e.Name),
		slog.String("match", e.Match.String()),
	)
	return e, true, e.Handler.HandleCallback(ctx, q)
}
