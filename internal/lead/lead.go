// Package lead holds the domain types collected by the dialogue wizard.
package lead

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownRole is returned when a role key is not part of the role menu.
	ErrUnknownRole = errors.New("lead: unknown role")
	// ErrUnknownCategory is returned when a category key is not part of the category menu.
	ErrUnknownCategory = errors.New("lead: unknown category")
)

// Role is the closed set of roles a lead can pick on the first step.
type Role int

const (
	RoleUnset Role = iota
	RoleClient
	RoleApplicant
	RoleOther
)

// Roles lists the role menu in display order.
var Roles = []Role{RoleClient, RoleApplicant, RoleOther}

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "Client"
	case RoleApplicant:
		return "Applicant"
	case RoleOther:
		return "Other"
	}
	return ""
}

// Key returns the stable lowercase identifier used in callback payloads.
func (r Role) Key() string {
	return strings.ToLower(r.String())
}

// ParseRole maps a menu key or label ("client", "Client") to a Role.
func ParseRole(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, r := range Roles {
		if r.Key() == key {
			return r, nil
		}
	}
	return RoleUnset, ErrUnknownRole
}

// Category is a project category offered to clients.
type Category string

const (
	CategoryAd          Category = "Ad"
	CategoryDocumentary Category = "Documentary"
	CategoryClip        Category = "Clip"
	CategoryDigital     Category = "Digital"
	CategoryOther       Category = "Other"
)

// Categories lists the category menu in display order.
var Categories = []Category{CategoryAd, CategoryDocumentary, CategoryClip, CategoryDigital, CategoryOther}

// Key returns the stable lowercase identifier used in callback payloads.
func (c Category) Key() string {
	return strings.ToLower(string(c))
}

// ParseCategory maps a menu key or label to one of the fixed categories.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if c.Key() == key {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// FieldCount is the number of columns every emitted record has.
const FieldCount = 5

// Record accumulates the answers of a single dialogue.
type Record struct {
	Role     Role
	Name     string
	Contact  string
	Category string
	Details  string
}

// Fields returns the sink-bound ordered tuple
// [role, name, contact, category, details].
// Category is always empty for roles other than Client.
func (r Record) Fields() []string {
	category := r.Category
	if r.Role != RoleClient {
		category = ""
	}
	return []string{r.Role.String(), r.Name, r.Contact, category, r.Details}
}

// Submission wraps a completed record with delivery metadata.
type Submission struct {
	ID          uuid.UUID
	SessionID   int64
	UserID      int64
	Username    string
	SubmittedAt time.Time
	Record      Record
}

// NewSubmission stamps a completed record with a fresh ID and timestamp.
func NewSubmission(sessionID int64, rec Record, now time.Time) Submission {
	return Submission{
		ID:          uuid.New(),
		SessionID:   sessionID,
		SubmittedAt: now.UTC(),
		Record:      rec,
	}
}
