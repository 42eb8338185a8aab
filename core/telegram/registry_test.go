package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supportbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "start"}))
	require.NoError(t, reg.RegisterCommand("/accept", commands.Command{Handler: noop, Description: "accept", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "help", Aliases: []string{"h"}}))

	assert.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "again"}))
	assert.Error(t, reg.RegisterCommand("faq", commands.Command{Handler: noop, Description: "no slash"}))
	assert.Error(t, reg.RegisterCommand("/x", commands.Command{Description: "no handler"}))

	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "/help", visible[0].Text)
	assert.Equal(t, "/start", visible[1].Text)
	assert.Len(t, reg.ListCommands(false), 3)

	key, _, ok := reg.LookupCommand("h")
	require.True(t, ok)
	assert.Equal(t, "/help", key)
	_, _, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)
}
