package router

import (
	"context"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/supportbot/core/telegram"
	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"
)

// TextMessage is a plain text update stripped of transport types.
type TextMessage struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	Text      string
}

// Conversation takes plain text while a chat is in the middle of a dialogue.
type Conversation interface {
	InProgress(chatID int64) bool
	HandleText(ctx context.Context, m TextMessage) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes routes plain text: an active dialogue first, then command
// aliases, then the registry fallback, then opts.UnknownText.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()
		chatID, userID := tghelpers.IDs(c)

		if conv != nil && conv.InProgress(chatID) {
			return handleWithSummary(c, "dialogue", start, summary{}, func() error {
				m := TextMessage{ChatID: chatID, UserID: userID, Text: text}
				if s := c.Sender(); s != nil {
					m.Username, m.FirstName = s.Username, s.FirstName
				}
				return conv.HandleText(tghelpers.BuildContext(c), m)
			})
		}

		if reg != nil && strings.HasPrefix(text, "/") {
			word, _, _ := strings.Cut(text, " ")
			if key, cmd, ok := reg.LookupCommand(word); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, summary{}, func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, summary{}, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, summary{}, func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, summary{status: "skip"}, nil)
		return nil
	}

	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
