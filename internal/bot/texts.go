package bot

import (
	"strconv"
	"strings"

	"github.com/m3rciful/supportbot/core/buildinfo"
	"github.com/m3rciful/supportbot/core/telegram/format"
	"github.com/m3rciful/supportbot/internal/records"
)

const (
	startText         = "Bot started. Choose an action:"
	menuText          = "Main menu:"
	chooseText        = "*Choose:*"
	noRequestsText    = "You have no requests here yet."
	thinkingText      = "Thinking about the answer..."
	unreachableText   = "Could not reach the answer service."
	unknownText       = "I did not understand that. Open the FAQ to ask a question."
	adminOnlyText     = "This command is for administrators only."
	limitedText       = "Too many requests, slow down a little."
	sendUsageText     = "Usage: /send_message <text>"
	acceptUsageText   = "Usage: /accept <owner>:<request id>"
	acceptMissingText = "Request not found."
	acceptedOwnerText = "Your request was accepted and is being worked on."
	timeLayout        = "2006-01-02 15:04:05"
)

type commandLine struct {
	Name        string
	Description string
}

func helpText(cmds []commandLine) string {
	var b strings.Builder
	b.WriteString("These commands are supported:")
	for _, c := range cmds {
		b.WriteString("\n")
		b.WriteString(c.Name)
		b.WriteString(" - ")
		b.WriteString(c.Description)
	}
	b.WriteString("\n\nVersion: ")
	b.WriteString(buildinfo.String())
	return b.String()
}

// faqText greets by first name when one is known. MarkdownV2.
func faqText(firstName string) string {
	name := format.V2(strings.TrimSpace(firstName))
	if name != "" {
		name = "*" + name + "* "
	}
	return "*FAQ ℹ️*\n\n" + name + format.V2(
		"If you did not find the answer to your question 🫥, write it right here in the chat 💭 and our assistant 🤖 will help you 😊",
	)
}

func profitsText() string {
	return "*🤔 What is this bot good for?*\n" + format.V2("Pretty much everything...")
}

func sentText(text string) string {
	return "Message: " + text + " sent"
}

func adminNoticeText(username string, r records.Record) string {
	who := "id " + strconv.FormatInt(r.OwnerID, 10)
	if username != "" {
		who = "@" + username + " (" + who + ")"
	}
	return "New request from " + who + ":\n" + r.Text + "\n\nAccept: /accept " + r.Ref().String()
}

func acceptedText(ref records.Ref) string {
	return "Request " + ref.String() + " accepted."
}

// detailsText renders a record for the item view. MarkdownV2.
func detailsText(r records.Record) string {
	var b strings.Builder
	b.WriteString("*Request:*\n")
	b.WriteString(format.V2(r.Text))
	b.WriteString("\n*UID:* `")
	b.WriteString(format.V2(r.ID.String()))
	b.WriteString("`\n*Created:* ")
	b.WriteString(format.V2(r.CreatedAt.UTC().Format(timeLayout)))
	b.WriteString("\n*Status:* ")
	b.WriteString(format.V2(string(r.Status)))
	if answer := format.DerefString(r.Answer, ""); answer != "" {
		b.WriteString("\n*Answer:*\n")
		b.WriteString(format.V2(answer))
	}
	return b.String()
}
