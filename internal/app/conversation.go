package app

import (
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/keyboard"
	"github.com/m3rciful/leadbot/core/telegram/router"
	"github.com/m3rciful/leadbot/internal/wizard"
)

// Telegram rejects photo captions above this many characters.
const captionLimit = 1024

var _ router.Dialogue = (*App)(nil)

// InProgress reports whether the chat of c has an open dialogue.
func (a *App) InProgress(c tele.Context) bool {
	return a.service.InProgress(tghelpers.ChatID(c))
}

// Handle feeds a message of an open dialogue to the wizard.
func (a *App) Handle(c tele.Context) error {
	return a.dispatch(c, messageEvent(c))
}

// UnknownText opens a dialogue for text sent outside of one.
func (a *App) UnknownText() tele.HandlerFunc { return a.Handle }

// UnknownMedia treats media like text; the wizard re-prompts on empty answers.
func (a *App) UnknownMedia() tele.HandlerFunc { return a.Handle }

// UnknownCallback handles buttons whose key is no longer registered.
func (a *App) UnknownCallback() tele.HandlerFunc { return a.onSelect }

// onLimited tells a throttled user the update was not processed and should be resent.
func (a *App) onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Ack(c, a.msgs.RateLimited)
	}
	return tghelpers.SendText(c, a.msgs.RateLimited)
}

func (a *App) onStart(c tele.Context) error {
	return a.dispatch(c, wizard.Event{Kind: wizard.EventStart})
}

func (a *App) onCancel(c tele.Context) error {
	return a.dispatch(c, wizard.Event{Kind: wizard.EventCancel})
}

func (a *App) onRestart(c tele.Context) error {
	return a.dispatch(c, wizard.Event{Kind: wizard.EventRestart})
}

func (a *App) onSelect(c tele.Context) error {
	return a.dispatch(c, wizard.Select(callbacks.Payload(c)))
}

// messageEvent turns a message into a text answer. A shared contact answers with its phone number.
func messageEvent(c tele.Context) wizard.Event {
	if m := c.Message(); m != nil && m.Contact != nil {
		return wizard.Text(m.Contact.PhoneNumber)
	}
	return wizard.Text(c.Text())
}

func (a *App) dispatch(c tele.Context, ev wizard.Event) error {
	in := wizard.Inbound{
		SessionID: tghelpers.ChatID(c),
		UserID:    tghelpers.UserID(c),
		Event:     ev,
	}
	if u := c.Sender(); u != nil {
		in.Username = u.Username
	}
	p := a.service.Handle(tghelpers.BuildContext(c), in)
	return a.render(c, p)
}

// render sends the prompt with its menu and the base row of buttons.
// First-time questions carry the configured image of their step.
func (a *App) render(c tele.Context, p wizard.Prompt) error {
	if p.Empty() {
		return nil
	}
	markup := a.markup(p)

	if p.Kind == wizard.PromptAsk {
		if url := a.cfg.Wizard.Images[string(p.State)]; url != "" {
			if utf8.RuneCountInString(p.Text) <= captionLimit {
				return tghelpers.SendPhotoHTML(c, url, p.Text, markup)
			}
			if err := tghelpers.SendPhotoHTML(c, url, "", nil); err != nil {
				return err
			}
		}
	}
	return tghelpers.SendHTML(c, p.Text, markup)
}

func (a *App) markup(p wizard.Prompt) *tele.ReplyMarkup {
	var rows [][]keyboard.InlineBtn
	if len(p.Options) > 0 {
		btns := make([]keyboard.InlineBtn, len(p.Options))
		for i, o := range p.Options {
			btns[i] = keyboard.InlineBtn{Text: o.Label, Unique: string(p.Menu), Data: o.Value}
		}
		perRow := 1
		if p.Menu == wizard.MenuCategory {
			perRow = 2
		}
		rows = append(rows, keyboard.Chunk(btns, perRow)...)
	}
	return keyboard.InlineButtonsRows(append(rows, a.baseRow())...)
}

func (a *App) baseRow() []keyboard.InlineBtn {
	w := a.cfg.Wizard
	row := make([]keyboard.InlineBtn, 0, 2)
	if w.WebsiteURL != "" {
		row = append(row, keyboard.InlineBtn{Text: w.WebsiteLabel, URL: w.WebsiteURL})
	}
	return append(row, keyboard.InlineBtn{Text: w.RestartLabel, Unique: cbRestart})
}
