package lead

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, in := range []string{"client", "Client", " CLIENT "} {
		r, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, RoleClient, r)
	}

	_, err := ParseRole("cliente")
	assert.ErrorIs(t, err, ErrUnknownRole)
	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("documentary")
	require.NoError(t, err)
	assert.Equal(t, CategoryDocumentary, c)

	_, err = ParseCategory("podcast")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestRecordFields(t *testing.T) {
	client := Record{Role: RoleClient, Name: "Acme Inc", Contact: "a@b.com", Category: "Ad", Details: "Need a 30s spot"}
	assert.Equal(t, []string{"Client", "Acme Inc", "a@b.com", "Ad", "Need a 30s spot"}, client.Fields())

	applicant := Record{Role: RoleApplicant, Name: "Jane", Contact: "+123", Category: "leftover", Details: "Editor"}
	fields := applicant.Fields()
	require.Len(t, fields, FieldCount)
	assert.Empty(t, fields[3])
}

func TestValidName(t *testing.T) {
	assert.False(t, ValidName(""))
	assert.True(t, ValidName(strings.Repeat("a", MaxNameLength)))
	assert.False(t, ValidName(strings.Repeat("a", MaxNameLength+1)))
	// counted in characters, not bytes
	assert.True(t, ValidName(strings.Repeat("ж", MaxNameLength)))
}

func TestValidContact(t *testing.T) {
	for _, ok := range []string{"a@b.com", "+79990001122", "@handle", "site.example"} {
		assert.True(t, ValidContact(ok), ok)
	}
	for _, bad := range []string{"", "not-a-contact", "12345"} {
		assert.False(t, ValidContact(bad), bad)
	}
}

func TestValidDetails(t *testing.T) {
	assert.True(t, ValidDetails(""))
	assert.True(t, ValidDetails(strings.Repeat("x", MaxDetailsLength)))
	assert.False(t, ValidDetails(strings.Repeat("x", MaxDetailsLength+1)))
}

func TestNewSubmission(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	sub := NewSubmission(42, Record{Role: RoleOther}, now)
	assert.NotEqual(t, uuid.Nil, sub.ID)
	assert.Equal(t, int64(42), sub.SessionID)
	assert.Equal(t, time.UTC, sub.SubmittedAt.Location())
	assert.True(t, sub.SubmittedAt.Equal(now))
}
