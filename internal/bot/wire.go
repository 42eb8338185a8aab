package bot

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"
	"github.com/m3rciful/supportbot/core/telegram/middleware"
	"github.com/m3rciful/supportbot/core/telegram/router"
	"github.com/m3rciful/supportbot/internal/users"
)

func senderOf(c tele.Context) Sender {
	var s Sender
	s.ChatID, s.UserID = tghelpers.IDs(c)
	if u := c.Sender(); u != nil {
		s.Username, s.FirstName = u.Username, u.FirstName
	}
	return s
}

// args returns the text after the command word.
func args(c tele.Context) string {
	if m := c.Message(); m != nil && m.Payload != "" {
		return strings.TrimSpace(m.Payload)
	}
	_, rest, _ := strings.Cut(strings.TrimSpace(c.Text()), " ")
	return strings.TrimSpace(rest)
}

func (b *Bot) handle(fn func(ctx context.Context, s Sender) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(tghelpers.BuildContext(c), senderOf(c))
	}
}

func (b *Bot) handleArgs(fn func(ctx context.Context, s Sender, arg string) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(tghelpers.BuildContext(c), senderOf(c), args(c))
	}
}

func (b *Bot) reply(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		s := senderOf(c)
		return b.send(tghelpers.BuildContext(c), s.ChatID, tg.Message{Text: text})
	}
}

// Register adds the bot commands to reg and builds the help text from the
// visible ones.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/help", commands.Command{Handler: b.handle(b.Help), Description: "Show this text", Aliases: []string{"h"}}},
		{"/start", commands.Command{Handler: b.handle(b.Start), Description: "Start the bot"}},
		{"/send_message", commands.Command{Handler: b.handleArgs(b.SendMessage), Description: "Send a message to the admin"}},
		{"/faq", commands.Command{Handler: b.handle(b.FAQ), Description: "Frequently asked questions"}},
		{"/accept", commands.Command{Handler: b.handleArgs(b.Accept), Description: "Accept a request", AdminOnly: true}},
	}
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return err
		}
	}
	var lines []commandLine
	for _, c := range reg.ListCommands(true) {
		lines = append(lines, commandLine{Name: c.Text, Description: c.Description})
	}
	b.help = helpText(lines)
	return nil
}

// Routes returns command, callback and text routes for reg.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		Admin: middleware.AdminOptions{
			AdminID: b.adminID,
			IsAdmin: func(ctx context.Context, userID int64) (bool, error) {
				return users.IsAdmin(ctx, b.users, userID)
			},
			OnReject: b.reply(adminOnlyText),
		},
	})
	routes = append(routes, router.CallbackRoute(b))
	routes = append(routes, router.TextRoutes(b, reg, router.TextOptions{
		UnknownText: b.handle(b.UnknownText),
	})...)
	return routes
}

// OnLimited answers updates dropped by the rate limiter.
func (b *Bot) OnLimited() tele.HandlerFunc {
	return b.reply(limitedText)
}
