package middleware

import (
	tele "gopkg.in/telebot.v4"
)

// ChatLocker hands out an exclusive section per chat.
type ChatLocker interface {
	Lock(chatID int64) (unlock func())
}

// SerializeChat runs updates of the same chat one at a time.
// Updates without a chat pass through unlocked.
func SerializeChat(l ChatLocker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if l == nil || chat == nil {
				return next(c)
			}
			unlock := l.Lock(chat.ID)
			defer unlock()
			return next(c)
		}
	}
}
