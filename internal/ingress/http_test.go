package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anforahq/anfora/internal/config"
	"github.com/anforahq/anfora/internal/model/contract"
	"github.com/anforahq/anfora/internal/tool"
)

type fakeRunner struct {
	answer  string
	trace   []tool.InvocationRecord
	err     error
	history []contract.Message
	message string
}

func (f *fakeRunner) Run(ctx context.Context, history []contract.Message, userMessage string) (string, []tool.InvocationRecord, error) {
	f.history = history
	f.message = userMessage
	return f.answer, f.trace, f.err
}

func newTestServer(t *testing.T, runner ChatRunner) *httptest.Server {
	t.Helper()
	s, err := NewHTTPServer(config.ServerConfig{}, config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}, runner)
	require.NoError(t, err)
	return httptest.NewServer(s.Handler())
}

func TestNewHTTPServer_AppliesTimeouts(t *testing.T) {
	s, err := NewHTTPServer(config.ServerConfig{
		Port:         8000,
		ReadTimeout:  "10s",
		WriteTimeout: "90s",
		IdleTimeout:  "45s",
	}, config.CORSConfig{}, &fakeRunner{})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, s.server.ReadTimeout)
	assert.Equal(t, 90*time.Second, s.server.WriteTimeout)
	assert.Equal(t, 45*time.Second, s.server.IdleTimeout)
}

func TestNewHTTPServer_DefaultTimeouts(t *testing.T) {
	s, err := NewHTTPServer(config.ServerConfig{}, config.CORSConfig{}, &fakeRunner{})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.server.ReadTimeout)
	assert.Equal(t, 120*time.Second, s.server.WriteTimeout)
	assert.Equal(t, 60*time.Second, s.server.IdleTimeout)
}

func TestNewHTTPServer_BadTimeout(t *testing.T) {
	_, err := NewHTTPServer(config.ServerConfig{ReadTimeout: "soon"}, config.CORSConfig{}, &fakeRunner{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read timeout")
}

func postChat(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestHandleChat_Success(t *testing.T) {
	output := "Found 1 results:\n{count: 290}\n"
	runner := &fakeRunner{
		answer: "There are 290 employees.",
		trace: []tool.InvocationRecord{
			{ID: "01ABC", ToolName: "query_database", Input: `{"query":"SELECT 1"}`, Output: &output, Timestamp: "2026-08-30T12:00:00Z", DurationMS: 42},
		},
	}
	server := newTestServer(t, runner)
	defer server.Close()

	resp := postChat(t, server.URL, `{"message":"How many employees?"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Response  string                  `json:"response"`
		ToolCalls []tool.InvocationRecord `json:"tool_calls"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "There are 290 employees.", body.Response)
	require.Len(t, body.ToolCalls, 1)
	assert.Equal(t, "query_database", body.ToolCalls[0].ToolName)
	assert.Equal(t, "How many employees?", runner.message)
}

func TestHandleChat_EmptyTraceEncodesAsArray(t *testing.T) {
	server := newTestServer(t, &fakeRunner{answer: "hi"})
	defer server.Close()

	resp := postChat(t, server.URL, `{"message":"hello"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["tool_calls"]))
}

func TestHandleChat_HistoryForwarded(t *testing.T) {
	runner := &fakeRunner{answer: "ok"}
	server := newTestServer(t, runner)
	defer server.Close()

	resp := postChat(t, server.URL, `{
		"message": "follow-up",
		"history": [
			{"role": "user", "content": "first"},
			{"role": "assistant", "content": "second"}
		]
	}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, runner.history, 2)
	assert.Equal(t, contract.RoleUser, runner.history[0].Role)
	assert.Equal(t, contract.RoleAssistant, runner.history[1].Role)
}

func TestHandleChat_BadRequests(t *testing.T) {
	server := newTestServer(t, &fakeRunner{answer: "never"})
	defer server.Close()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"missing message", `{"history":[]}`},
		{"blank message", `{"message":"   "}`},
		{"unknown history role", `{"message":"hi","history":[{"role":"system","content":"x"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postChat(t, server.URL, tc.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleChat_ProviderFailureIs500(t *testing.T) {
	server := newTestServer(t, &fakeRunner{err: errors.New("model request failed: upstream 502")})
	defer server.Close()

	resp := postChat(t, server.URL, `{"message":"hi"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &fakeRunner{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/chat")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, &fakeRunner{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "anfora", body["service"])
}

func TestHandleHealth_UnknownPathIs404(t *testing.T) {
	server := newTestServer(t, &fakeRunner{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
