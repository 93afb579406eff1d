package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/commands"
)

var (
	// ErrInvalidRoute is returned for a registration with a missing name, description or handler.
	ErrInvalidRoute = errors.New("telegram: invalid registration")
	// ErrDuplicateRoute is returned when a command, alias or callback key is taken.
	ErrDuplicateRoute = errors.New("telegram: already registered")
)

// Registry maps slash commands and callback keys to handlers.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{
		commands:         map[string]commands.Command{},
		aliases:          map[string]string{},
		callbacks:        map[string]tele.HandlerFunc{},
		callbackNotFound: func(tele.Context) error { return nil },
	}
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if len(name) < 2 || name[0] != '/' || cmd.Handler == nil || cmd.Description == "" {
		return fmt.Errorf("%w: command %q", ErrInvalidRoute, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(name) {
		return fmt.Errorf("%w: command %s", ErrDuplicateRoute, name)
	}
	alias := make([]string, 0, len(cmd.Aliases))
	for _, a := range cmd.Aliases {
		a = commands.Slash(a)
		if a == "" || a == name {
			continue
		}
		if r.taken(a) || slices.Contains(alias, a) {
			return fmt.Errorf("%w: alias %s of %s", ErrDuplicateRoute, a, name)
		}
		alias = append(alias, a)
	}

	cmd.Aliases = alias
	r.commands[name] = cmd
	for _, a := range alias {
		r.aliases[a] = name
	}
	return nil
}

func (r *Registry) taken(name string) bool {
	_, cmd := r.commands[name]
	_, alias := r.aliases[name]
	return cmd || alias
}

// Commands returns a copy of the registered commands keyed by name.
// Aliases are normalized to their slash form.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// ListCommands returns the commands sorted by name, only the menu-visible ones when visibleOnly is set.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		cmd := r.commands[name]
		if visibleOnly && !cmd.Visible() {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	return list
}

// LookupCommand resolves typed text such as "/name@bot args" or an alias to
// the registered command name.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name, ok := commands.Parse(text)
	if !ok {
		return "", commands.Command{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, isAlias := r.aliases[name]; isAlias {
		name = target
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", commands.Command{}, false
	}
	return name, cmd, true
}

// RegisterCallback binds handler to the unique key of inline buttons.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return fmt.Errorf("%w: callback %q", ErrInvalidRoute, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("%w: callback %s", ErrDuplicateRoute, key)
	}
	r.callbacks[key] = handler
	return nil
}

func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback keys in order.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound sets the handler for buttons with an unknown key. Nil is ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that no conversation or command claims.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// CommandMenu is the part of *tele.Bot used to publish the command menu.
type CommandMenu interface {
	SetCommands(opts ...interface{}) error
}

// SetupCommands publishes the visible commands in the Telegram command menu.
func SetupCommands(bot CommandMenu, reg *Registry) error {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return nil
	}
	if err := bot.SetCommands(list); err != nil {
		return fmt.Errorf("telegram: set commands: %w", err)
	}
	logger.Debug(context.Background(), "tg.wire", "commands.menu",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
	return nil
}
