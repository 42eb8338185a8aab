package telegram

import (
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestRetryTransportRetriesDialOnly(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("refused")}
	base := &scriptedTransport{errs: []error{dial, dial}}
	rt := &retryTransport{base: base, maxRetries: 3}

	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/getMe", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, base.calls)

	read := &net.OpError{Op: "read", Err: errors.New("reset")}
	base = &scriptedTransport{errs: []error{read}}
	rt.base = base
	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, read)
	assert.Equal(t, 1, base.calls)
}
