package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start", Aliases: []string{"begin", "/go"}}))
	require.NoError(t, r.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", AdminOnly: true}))

	assert.ErrorIs(t, r.RegisterCommand("/start", commands.Command{Handler: noop, Description: "dup"}), ErrDuplicateRoute)
	assert.ErrorIs(t, r.RegisterCommand("/begin", commands.Command{Handler: noop, Description: "alias clash"}), ErrDuplicateRoute)
	assert.ErrorIs(t, r.RegisterCommand("/cancel", commands.Command{Handler: noop, Description: "c", Aliases: []string{"go"}}), ErrDuplicateRoute)
	assert.ErrorIs(t, r.RegisterCommand("cancel", commands.Command{Handler: noop, Description: "no slash"}), ErrInvalidRoute)
	assert.ErrorIs(t, r.RegisterCommand("/empty", commands.Command{Handler: noop}), ErrInvalidRoute)

	cmds := r.Commands()
	assert.Len(t, cmds, 2)
	assert.Equal(t, []string{"/begin", "/go"}, cmds["/start"].Aliases)
	assert.Equal(t, []tele.Command{{Text: "/start", Description: "Start"}}, r.ListCommands(true))
	assert.Len(t, r.ListCommands(false), 2)

	for _, in := range []string{"/start", "/start@leadbot", "/start payload", "/begin", "/go now"} {
		key, _, ok := r.LookupCommand(in)
		assert.True(t, ok, in)
		assert.Equal(t, "/start", key, in)
	}
	for _, in := range []string{"start", "/", "", "hello /start", "/cancel"} {
		_, _, ok := r.LookupCommand(in)
		assert.False(t, ok, in)
	}
}

func TestRegistryCallbacks(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterCallback("role", noop))
	require.NoError(t, r.RegisterCallback("category", noop))
	assert.ErrorIs(t, r.RegisterCallback("role", noop), ErrDuplicateRoute)
	assert.ErrorIs(t, r.RegisterCallback("", noop), ErrInvalidRoute)

	_, ok := r.GetCallback("role")
	assert.True(t, ok)
	assert.Equal(t, []string{"category", "role"}, r.ListCallbacks())
	assert.NotNil(t, r.CallbackNotFound())

	r.SetCallbackNotFound(nil)
	assert.NotNil(t, r.CallbackNotFound())
}

func TestCommandWords(t *testing.T) {
	assert.Equal(t, "/go", commands.Slash("//go "))
	assert.Empty(t, commands.Slash("/"))
	name, ok := commands.Parse("/stats@leadbot now")
	assert.True(t, ok)
	assert.Equal(t, "/stats", name)
}

type menuStub struct {
	got []interface{}
	err error
}

func (m *menuStub) SetCommands(opts ...interface{}) error {
	m.got = opts
	return m.err
}

func TestSetupCommands(t *testing.T) {
	r := NewRegistry()
	menu := &menuStub{}
	require.NoError(t, SetupCommands(menu, r))
	assert.Nil(t, menu.got, "empty menu is not published")

	require.NoError(t, r.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"}))
	require.NoError(t, SetupCommands(menu, r))
	require.Len(t, menu.got, 1)
	assert.Equal(t, []tele.Command{{Text: "/start", Description: "Start"}}, menu.got[0])

	menu.err = errors.New("401")
	assert.Error(t, SetupCommands(menu, r))
}
