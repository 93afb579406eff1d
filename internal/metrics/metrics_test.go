package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/internal/lead"
	"github.com/m3rciful/leadbot/internal/wizard"
)

func TestTransitionAndSubmissionCounters(t *testing.T) {
	m := New(nil)

	m.Transition(wizard.StateChooseRole, wizard.StateGetName, wizard.PromptAsk)
	m.Transition(wizard.StateGetName, wizard.StateGetName, wizard.PromptRetry)
	m.Transition(wizard.StateGetName, wizard.StateGetName, wizard.PromptRetry)
	m.Submitted(lead.RoleClient, nil)
	m.Submitted(lead.RoleClient, errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("choose_role", "get_name", "ask")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("get_name", "get_name", "retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("client", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("client", "error")))
}

func TestObserveAppend(t *testing.T) {
	m := New(nil)
	m.ObserveAppend("sheets", 120*time.Millisecond, nil)
	m.ObserveAppend("postgres", time.Second, errors.New("refused"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.appends.WithLabelValues("sheets", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.appends.WithLabelValues("postgres", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.appendTime))
}

func TestHandlerExposesGauge(t *testing.T) {
	active := 3
	m := New(func() int { return active })

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "leadbot_wizard_active_sessions 3")
	assert.Contains(t, string(body), "go_goroutines")
}
