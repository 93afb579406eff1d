// Package wizard implements the lead collection dialogue as a finite state machine.
//
// Machine.Transition is pure: it maps (session, event) to the next session,
// one outbound prompt and flags telling the caller whether to emit the record
// and whether to discard the session. Service wraps it with a session store
// and a record sink.
package wizard

import (
	"strings"

	"github.com/m3rciful/leadbot/internal/lead"
)

// Machine evaluates wizard transitions using a fixed set of texts.
type Machine struct {
	msgs Messages
}

// NewMachine builds a Machine; empty texts fall back to defaults.
func NewMachine(msgs Messages) *Machine {
	return &Machine{msgs: msgs.WithDefaults()}
}

// Messages returns the effective texts.
func (m *Machine) Messages() Messages { return m.msgs }

// Prompt returns the question for the session's current state.
func (m *Machine) Prompt(s Session) Prompt {
	return m.ask(s.State)
}

// Transition applies ev to s.
func (m *Machine) Transition(s Session, ev Event) Outcome {
	switch ev.Kind {
	case EventStart, EventRestart:
		next := NewSession(s.ID)
		return Outcome{Session: next, Prompt: m.ask(next.State)}
	case EventCancel:
		if s.State.Terminal() {
			return Outcome{Session: s, End: true}
		}
		return Outcome{
			Session: s,
			Prompt:  Prompt{Kind: PromptCancelled, State: s.State, Text: m.msgs.Cancelled},
			End:     true,
		}
	}

	switch s.State {
	case StateChooseRole:
		return m.chooseRole(s, ev)
	case StateGetName:
		return m.getName(s, ev)
	case StateGetContact:
		return m.getContact(s, ev)
	case StateGetCategory:
		return m.getCategory(s, ev)
	case StateGetDetails:
		return m.getDetails(s, ev)
	}
	// Completed or unknown: nothing to act on.
	return Outcome{Session: s, End: s.State.Terminal()}
}

func (m *Machine) chooseRole(s Session, ev Event) Outcome {
	if ev.Kind != EventSelect {
		return m.retry(s, m.msgs.InvalidRole)
	}
	role, err := lead.ParseRole(ev.Value)
	if err != nil {
		return m.retry(s, m.msgs.InvalidRole)
	}
	s.Record = lead.Record{Role: role}
	return m.advance(s, StateGetName)
}

func (m *Machine) getName(s Session, ev Event) Outcome {
	name := strings.TrimSpace(ev.Value)
	if ev.Kind != EventText || !lead.ValidName(name) {
		return m.retry(s, m.msgs.InvalidName)
	}
	s.Record.Name = name
	return m.advance(s, StateGetContact)
}

func (m *Machine) getContact(s Session, ev Event) Outcome {
	contact := strings.TrimSpace(ev.Value)
	if ev.Kind != EventText || !lead.ValidContact(contact) {
		return m.retry(s, m.msgs.InvalidContact)
	}
	s.Record.Contact = contact
	if s.Record.Role == lead.RoleClient {
		return m.advance(s, StateGetCategory)
	}
	return m.advance(s, StateGetDetails)
}

// getCategory accepts a menu selection or free text as a custom category.
func (m *Machine) getCategory(s Session, ev Event) Outcome {
	switch ev.Kind {
	case EventSelect:
		c, err := lead.ParseCategory(ev.Value)
		if err != nil {
			return m.retry(s, m.msgs.InvalidCategory)
		}
		s.Record.Category = string(c)
	case EventText:
		custom := strings.TrimSpace(ev.Value)
		if custom == "" {
			return m.retry(s, m.msgs.InvalidCategory)
		}
		s.Record.Category = custom
	default:
		return m.retry(s, m.msgs.InvalidCategory)
	}
	return m.advance(s, StateGetDetails)
}

func (m *Machine) getDetails(s Session, ev Event) Outcome {
	details := strings.TrimSpace(ev.Value)
	if ev.Kind != EventText || !lead.ValidDetails(details) {
		return m.retry(s, m.msgs.InvalidDetails)
	}
	s.Record.Details = details
	s.State = StateCompleted
	return Outcome{
		Session: s,
		Prompt:  Prompt{Kind: PromptCompleted, State: StateCompleted, Text: m.msgs.Completed},
		Emit:    true,
		End:     true,
	}
}

func (m *Machine) advance(s Session, next State) Outcome {
	s.State = next
	return Outcome{Session: s, Prompt: m.ask(next)}
}

// retry re-prompts the current state and leaves the session untouched.
func (m *Machine) retry(s Session, text string) Outcome {
	p := m.ask(s.State)
	p.Kind = PromptRetry
	p.Text = text
	return Outcome{Session: s, Prompt: p}
}

func (m *Machine) ask(st State) Prompt {
	p := Prompt{Kind: PromptAsk, State: st}
	switch st {
	case StateChooseRole:
		p.Text = m.msgs.Welcome
		p.Menu = MenuRole
		p.Options = m.msgs.roleOptions()
	case StateGetName:
		p.Text = m.msgs.AskName
	case StateGetContact:
		p.Text = m.msgs.AskContact
	case StateGetCategory:
		p.Text = m.msgs.AskCategory
		p.Menu = MenuCategory
		p.Options = m.msgs.categoryOptions()
	case StateGetDetails:
		p.Text = m.msgs.AskDetails
	default:
		return Prompt{}
	}
	return p
}
