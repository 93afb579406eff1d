package wizard

import "github.com/m3rciful/leadbot/internal/lead"

// State identifies a wizard step.
type State string

const (
	StateChooseRole  State = "choose_role"
	StateGetName     State = "get_name"
	StateGetContact  State = "get_contact"
	StateGetCategory State = "get_category"
	StateGetDetails  State = "get_details"
	StateCompleted   State = "completed"
)

// States lists every state in canonical order.
var States = []State{
	StateChooseRole,
	StateGetName,
	StateGetContact,
	StateGetCategory,
	StateGetDetails,
	StateCompleted,
}

// Terminal reports whether no further input is accepted in s.
func (s State) Terminal() bool { return s == StateCompleted }

// Session is the per-conversation progress owned by a session store.
type Session struct {
	ID     int64
	State  State
	Record lead.Record
}

// NewSession returns a session positioned at the initial state with an empty record.
func NewSession(id int64) Session {
	return Session{ID: id, State: StateChooseRole}
}

// EventKind classifies inbound events.
type EventKind int

const (
	// EventText is a free-text message.
	EventText EventKind = iota
	// EventSelect is a menu button press; Value holds the option value.
	EventSelect
	// EventStart is the /start command.
	EventStart
	// EventRestart discards progress and returns to the first step.
	EventRestart
	// EventCancel discards the session without emitting a record.
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventSelect:
		return "select"
	case EventStart:
		return "start"
	case EventRestart:
		return "restart"
	case EventCancel:
		return "cancel"
	}
	return "unknown"
}

// Event is a single inbound interaction for a session.
type Event struct {
	Kind  EventKind
	Value string
}

// Text builds a free-text event.
func Text(s string) Event { return Event{Kind: EventText, Value: s} }

// Select builds a button-selection event.
func Select(v string) Event { return Event{Kind: EventSelect, Value: v} }

// PromptKind tells the transport how a prompt came about.
type PromptKind int

const (
	// PromptNone means nothing is sent.
	PromptNone PromptKind = iota
	// PromptAsk introduces a step.
	PromptAsk
	// PromptRetry repeats a step after rejected input.
	PromptRetry
	// PromptCompleted thanks the user after a successful submission.
	PromptCompleted
	// PromptSinkFailure reports that the submission could not be stored.
	PromptSinkFailure
	// PromptCancelled confirms cancellation.
	PromptCancelled
)

// Menu names the option set attached to a prompt.
type Menu string

const (
	MenuNone     Menu = ""
	MenuRole     Menu = "role"
	MenuCategory Menu = "category"
)

// Option is one selectable menu entry.
type Option struct {
	Label string
	Value string
}

// Prompt is the outbound message produced by a transition.
type Prompt struct {
	Kind    PromptKind
	State   State
	Text    string
	Menu    Menu
	Options []Option
}

// Empty reports whether there is nothing to deliver.
func (p Prompt) Empty() bool { return p.Kind == PromptNone }

// Outcome is the result of applying one event to a session.
type Outcome struct {
	Session Session
	Prompt  Prompt
	// Emit is set when Session.Record is complete and must go to the sink.
	Emit bool
	// End is set when the session must be discarded after this event.
	End bool
}
