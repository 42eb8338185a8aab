package compute

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSecrets struct {
	value string
	err   error
	calls int
}

func (s *staticSecrets) GetParameter(context.Context, string) (string, error) {
	s.calls++
	return s.value, s.err
}

func TestHTTPGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	secrets := &staticSecrets{value: `{"token":"sk-test"}`}
	g, err := NewHTTP(HTTPOptions{BaseURL: srv.URL, Model: "gpt-test", KeyParam: "/bot/key", Secrets: secrets})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		text, err := g.Generate(context.Background(), Prompt{System: "sys", User: "hi", Temperature: 0.5, TopP: 1})
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
	}
	assert.Equal(t, 1, secrets.calls)
	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestHTTPApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	g, err := NewHTTP(HTTPOptions{BaseURL: srv.URL + "/v1", Model: "m", APIKey: "k"})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), Prompt{User: "q"})
	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "quota exceeded", err.Error())
	assert.Equal(t, "HTTP_429", appErr.Code())
}

func TestHTTPUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	g, err := NewHTTP(HTTPOptions{BaseURL: srv.URL, Model: "m", APIKey: "k", Client: srv.Client()})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), Prompt{User: "q"})
	assert.ErrorIs(t, err, ErrUnavailable)

	srv.Close()
	_, err = g.Generate(context.Background(), Prompt{User: "q"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPKeyLookupFailure(t *testing.T) {
	secrets := &staticSecrets{err: errors.New("access denied")}
	g, err := NewHTTP(HTTPOptions{Model: "m", KeyParam: "/k", Secrets: secrets})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), Prompt{User: "q"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewHTTPValidates(t *testing.T) {
	_, err := NewHTTP(HTTPOptions{Model: "m"})
	assert.Error(t, err)
	_, err = NewHTTP(HTTPOptions{APIKey: "k"})
	assert.Error(t, err)
}

func TestChatURL(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", chatURL(""))
	assert.Equal(t, "http://x/v1/chat/completions", chatURL("http://x/"))
	assert.Equal(t, "http://x/v1/chat/completions", chatURL("http://x/v1"))
}
