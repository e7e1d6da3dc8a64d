package credentials

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

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "meta-llama/llama-3-8b-instruct",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "pong"}, "finish_reason": "stop"}]
}`

type probe struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

func provider(t *testing.T, status int, got *probe) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(completion))
			return
		}
		_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateAccepted(t *testing.T) {
	var got probe
	srv := provider(t, http.StatusOK, &got)

	err := New("good-key", WithBaseURL(srv.URL)).Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultProbeModel, got.Model)
	assert.Equal(t, 5, got.MaxTokens)
}

func TestValidateRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := provider(t, status, nil)

		err := New("bad-key", WithBaseURL(srv.URL)).Validate(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCredentialsInvalid)

		var invalid *InvalidError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, status, invalid.StatusCode)
	}
}

func TestValidateOtherFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New("key", WithBaseURL(srv.URL)).Validate(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsInvalid)
	assert.Equal(t, 1, calls, "the probe is never retried")
}

func TestValidateProbeModelOverride(t *testing.T) {
	var got probe
	srv := provider(t, http.StatusOK, &got)

	err := New("key", WithBaseURL(srv.URL), WithProbeModel("qwen/qwen-2.5-7b")).Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "qwen/qwen-2.5-7b", got.Model)
}

func TestInvalidErrorMessage(t *testing.T) {
	assert.Equal(t, "credentials rejected by provider (HTTP 401)", (&InvalidError{StatusCode: 401}).Error())
	assert.Equal(t, "credentials rejected by provider (HTTP 403): blocked", (&InvalidError{StatusCode: 403, Message: "blocked"}).Error())
}
