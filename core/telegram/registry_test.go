package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/commands"
)

func noop(_ tele.Context) error { return nil }

func TestListCommandsFiltersMenuEntries(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Open the menu"})
	reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "Help"})
	reg.RegisterCommand("/fleet", commands.Command{
		Handler: noop, Description: "Fleet status", AdminOnly: true, Hidden: true,
	})

	// The published menu carries only the public commands.
	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "/help", visible[0].Text)
	assert.Equal(t, "/start", visible[1].Text)

	all := reg.ListCommands(false)
	assert.Len(t, all, 3)
}

func TestRegisterCommandRejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("", commands.Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/start", commands.Command{Description: "nil handler"})

	assert.Empty(t, reg.ListCommands(false))
}

func TestSetupCommandsToleratesNils(t *testing.T) {
	// Must not panic during partial startup.
	SetupCommands(nil, NewRegistry())
	SetupCommands(nil, nil)
}
