package router

import (
	"sort"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/core/telegram/commands"
	"github.com/m3rciful/supportbot/core/telegram/middleware"
)

// CommandRouteOptions configures how commands are wrapped.
type CommandRouteOptions struct {
	Admin middleware.AdminOptions
}

// CommandRoutes binds every registered command and alias, sorted by name.
// Admin-only commands pass through AdminOnlyMiddleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	names := make([]string, 0, len(reg.Commands()))
	for name := range reg.Commands() {
		names = append(names, name)
	}
	sort.Strings(names)

	var routes []tg.Route
	for _, name := range names {
		def := reg.Commands()[name]
		h := commandHandler(normalizeHandlerName(name), def)
		if def.AdminOnly {
			h = middleware.AdminOnlyMiddleware(opts.Admin)(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			if alias != "" && alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}
	return routes
}

func commandHandler(name string, def commands.Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		return handleWithSummary(c, name, time.Now(), summary{}, func() error {
			return def.Handler(c)
		})
	}
}
