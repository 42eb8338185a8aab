package middleware

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supportbot/core/logger"
	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"
)

// AdminOptions defines how admin-only checks should behave.
// AdminID always passes; IsAdmin, when set, is consulted for everyone else.
type AdminOptions struct {
	AdminID  int64
	IsAdmin  func(ctx context.Context, userID int64) (bool, error)
	OnReject tele.HandlerFunc
}

func (o AdminOptions) allowed(ctx context.Context, userID int64) bool {
	if o.AdminID != 0 && userID == o.AdminID {
		return true
	}
	if o.IsAdmin == nil {
		return false
	}
	ok, err := o.IsAdmin(ctx, userID)
	if err != nil {
		logger.Warn(ctx, logger.CompTelegram, "admin.check",
			slog.String("status", "fail"),
			slog.String("reason", "lookup_failed"),
			logger.Err(err),
		)
		return false
	}
	return ok
}

// AdminOnlyMiddleware ensures that only admins can invoke downstream handlers.
// Lookup failures deny access.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			if c.Sender() == nil || !opts.allowed(ctx, c.Sender().ID) {
				logger.Info(ctx, logger.CompTelegram, "admin.reject", slog.String("status", "skip"))
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
