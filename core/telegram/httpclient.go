package telegram

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/m3rciful/leadbot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryInterval     = 500 * time.Millisecond
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls. Requests
// that fail before a response arrives are retried on dial and timeout errors.
// The client timeout must exceed the long poll timeout.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: max(defaultClientTimeout, longPoll+10*time.Second),
		Transport: &retryTransport{
			base:     transport,
			attempts: defaultRetryAttempts,
			interval: defaultRetryInterval,
		},
	}
}

type retryTransport struct {
	base     http.RoundTripper
	attempts int
	interval time.Duration
}

var errBodyNotRewindable = errors.New("telegram: request body cannot be replayed")

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	first := true
	return backoff.Retry(req.Context(), func() (*http.Response, error) {
		curr := req
		if !first {
			if req.Body != nil && req.GetBody == nil {
				return nil, backoff.Permanent(errBodyNotRewindable)
			}
			curr = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, backoff.Permanent(err)
				}
				curr.Body = body
			}
		}
		first = false

		resp, err := base.RoundTrip(curr)
		if err != nil && !netutil.ShouldRetry(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(t.interval)),
		backoff.WithMaxTries(uint(max(t.attempts, 1))),
	)
}
