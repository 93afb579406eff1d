package wizard

import "github.com/m3rciful/leadbot/internal/lead"

// Messages holds every user-facing text of the dialogue.
// Empty fields fall back to DefaultMessages.
type Messages struct {
	Welcome     string `yaml:"welcome"`
	AskName     string `yaml:"ask_name"`
	AskContact  string `yaml:"ask_contact"`
	AskCategory string `yaml:"ask_category"`
	AskDetails  string `yaml:"ask_details"`

	InvalidRole     string `yaml:"invalid_role"`
	InvalidName     string `yaml:"invalid_name"`
	InvalidContact  string `yaml:"invalid_contact"`
	InvalidCategory string `yaml:"invalid_category"`
	InvalidDetails  string `yaml:"invalid_details"`

	Completed   string `yaml:"completed"`
	SinkFailure string `yaml:"sink_failure"`
	Cancelled   string `yaml:"cancelled"`
	// RateLimited answers an update dropped for arriving too fast.
	RateLimited string `yaml:"rate_limited"`

	// RoleLabels and CategoryLabels override button captions by option key.
	RoleLabels     map[string]string `yaml:"role_labels"`
	CategoryLabels map[string]string `yaml:"category_labels"`
}

// DefaultMessages returns the built-in English texts.
func DefaultMessages() Messages {
	return Messages{
		Welcome: "Welcome to One More Production!\n\n" +
			"We make commercials, music videos, documentaries and digital content.\n\n" +
			"By continuing you agree to the processing of your personal data under our privacy policy.\n\n" +
			"Please tell us who you are:",
		AskName:     "Please write your name or the name of the company you represent.",
		AskContact:  "Please leave a contact: phone, email or Telegram username.",
		AskCategory: "What are you interested in?",
		AskDetails:  "Tell us more about your request:",

		InvalidRole:     "Please choose one of the options below.",
		InvalidName:     "Please enter a valid name (up to 100 characters).",
		InvalidContact:  "Please enter a valid contact.",
		InvalidCategory: "Please choose a category or describe it in a few words.",
		InvalidDetails:  "That is too long. Please shorten it to 1000 characters.",

		Completed:   "Thank you! We have received your details and will contact you soon.\n\nSend /start to run the bot again.",
		SinkFailure: "Something went wrong while saving your details. Please try again later.",
		Cancelled:   "Dialogue cancelled.",
		RateLimited: "You are sending messages too fast. Please wait a moment and send your last answer again.",
	}
}

// WithDefaults fills empty fields from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&m.Welcome, d.Welcome)
	fill(&m.AskName, d.AskName)
	fill(&m.AskContact, d.AskContact)
	fill(&m.AskCategory, d.AskCategory)
	fill(&m.AskDetails, d.AskDetails)
	fill(&m.InvalidRole, d.InvalidRole)
	fill(&m.InvalidName, d.InvalidName)
	fill(&m.InvalidContact, d.InvalidContact)
	fill(&m.InvalidCategory, d.InvalidCategory)
	fill(&m.InvalidDetails, d.InvalidDetails)
	fill(&m.Completed, d.Completed)
	fill(&m.SinkFailure, d.SinkFailure)
	fill(&m.Cancelled, d.Cancelled)
	fill(&m.RateLimited, d.RateLimited)
	return m
}

func (m Messages) roleOptions() []Option {
	opts := make([]Option, 0, len(lead.Roles))
	for _, r := range lead.Roles {
		label := r.String()
		if l, ok := m.RoleLabels[r.Key()]; ok && l != "" {
			label = l
		}
		opts = append(opts, Option{Label: label, Value: r.Key()})
	}
	return opts
}

func (m Messages) categoryOptions() []Option {
	opts := make([]Option, 0, len(lead.Categories))
	for _, c := range lead.Categories {
		label := string(c)
		if l, ok := m.CategoryLabels[c.Key()]; ok && l != "" {
			label = l
		}
		opts = append(opts, Option{Label: label, Value: c.Key()})
	}
	return opts
}
