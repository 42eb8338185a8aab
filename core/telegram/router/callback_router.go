package router

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/supportbot/core/telegram"
	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"
	"github.com/m3rciful/supportbot/core/logger"
)

// Callback is an inline-button press stripped of transport types.
type Callback struct {
	ChatID    int64
	UserID    int64
	FirstName string
	Message   tg.MessageRef
	Data      string
}

// CallbackHandler handles a press and names the handler that took it.
// An empty name means no handler matched.
type CallbackHandler interface {
	HandleCallback(ctx context.Context, cb Callback) (name string, err error)
}

// CallbackRoute answers every callback query, then hands it to h.
func CallbackRoute(h CallbackHandler) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cbq := c.Callback()
		if cbq == nil {
			return nil
		}
		if err := c.Respond(); err != nil {
			logger.Debug(tghelpers.BuildContext(c), logger.CompTelegram, "callback.respond",
				slog.String("status", "fail"),
				logger.Err(err),
			)
		}

		cb := Callback{Data: cbq.Data}
		cb.ChatID, cb.UserID = tghelpers.IDs(c)
		if s := c.Sender(); s != nil {
			cb.FirstName = s.FirstName
		}
		if m := cbq.Message; m != nil {
			cb.Message = tg.MessageRef{ChatID: cb.ChatID, MessageID: m.ID}
			if m.Chat != nil {
				cb.ChatID = m.Chat.ID
				cb.Message.ChatID = m.Chat.ID
			}
		}

		ctx := logger.WithCallbackKey(tghelpers.BuildContext(c), logger.SanitizeLimit(cb.Data, 64))
		tghelpers.StoreContext(c, ctx)

		name, err := h.HandleCallback(ctx, cb)
		s := summary{}
		handlerName := "callback." + normalizeHandlerName(name)
		if name == "" && err == nil {
			handlerName = "callback.unknown"
			s = summary{status: "skip", outcome: "ignored", extras: []slog.Attr{slog.String("reason", "not_found")}}
		}
		logHandlerSummary(c, handlerName, start, s, err)
		return err
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
