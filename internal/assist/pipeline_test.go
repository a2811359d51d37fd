package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/codepad/internal/language"
)

// fakeAssistant serves canned generateContent replies and records prompts.
type fakeAssistant struct {
	mu      sync.Mutex
	prompts []string
	keys    []string
	status  int
	body    string
}

func (f *fakeAssistant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
		f.prompts = append(f.prompts, req.Contents[0].Parts[0].Text)
	}
	f.keys = append(f.keys, r.URL.Query().Get("key"))
	status, body := f.status, f.body
	f.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func candidate(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b)
}

func newTestPipeline(t *testing.T, fake *fakeAssistant) *Pipeline {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientOptions{BaseURL: srv.URL, Model: "test-model", APIKey: "secret"})
	require.NoError(t, err)
	return NewPipeline(client, nil)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCorrectionStripsFencesBothWays(t *testing.T) {
	fake := &fakeAssistant{body: candidate("```java\nint b = 10;\n```")}
	p := newTestPipeline(t, fake)

	s, err := p.RequestErrorCorrection(context.Background(), "```java\nint b = 10\n```", "';' expected.", language.Java)
	require.NoError(t, err)
	assert.Equal(t, "int b = 10;", s.Text)
	assert.False(t, s.Unchanged)

	require.Len(t, fake.prompts, 1)
	assert.NotContains(t, fake.prompts[0], "```")
	assert.Equal(t, []string{"secret"}, fake.keys)
}

func TestIdenticalResultIsStillDelivered(t *testing.T) {
	src := "x = 1\nprint(x)"
	fake := &fakeAssistant{body: candidate("```python\n" + src + "\n```\n")}
	p := newTestPipeline(t, fake)

	s, err := p.RequestOptimization(context.Background(), "  "+src+"\n", language.Python)
	require.NoError(t, err)
	assert.Equal(t, src, s.Text)
	assert.True(t, s.Unchanged)
}

func TestRemoteFailures(t *testing.T) {
	t.Run("upstream error message", func(t *testing.T) {
		fake := &fakeAssistant{status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"API key not valid"}}`}
		_, err := newTestPipeline(t, fake).RequestOptimization(context.Background(), "x", language.Python)
		var remote *RemoteAPIError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, http.StatusBadRequest, remote.StatusCode)
		assert.Equal(t, "API key not valid", remote.Message)
	})

	t.Run("non-json failure", func(t *testing.T) {
		fake := &fakeAssistant{status: http.StatusBadGateway, body: "upstream down"}
		_, err := newTestPipeline(t, fake).RequestOptimization(context.Background(), "x", language.Python)
		var remote *RemoteAPIError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, http.StatusText(http.StatusBadGateway), remote.Message)
	})

	t.Run("content blocked", func(t *testing.T) {
		fake := &fakeAssistant{body: `{"promptFeedback":{"blockReason":"SAFETY"}}`}
		_, err := newTestPipeline(t, fake).RequestOptimization(context.Background(), "x", language.Python)
		var blocked *ContentBlockedError
		require.ErrorAs(t, err, &blocked)
		assert.Equal(t, "SAFETY", blocked.Reason)
		title, _ := Describe(err)
		assert.Contains(t, title, "content policy")
	})

	t.Run("malformed", func(t *testing.T) {
		fake := &fakeAssistant{body: `{"candidates":[]}`}
		_, err := newTestPipeline(t, fake).RequestOptimization(context.Background(), "x", language.Python)
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("empty after sanitizing", func(t *testing.T) {
		fake := &fakeAssistant{body: candidate("```\n\n```")}
		_, err := newTestPipeline(t, fake).RequestOptimization(context.Background(), "x", language.Python)
		require.ErrorIs(t, err, ErrEmptyResult)
	})
}

func TestTransportErrorDoesNotLeakKey(t *testing.T) {
	client, err := NewClient(ClientOptions{BaseURL: "http://127.0.0.1:1", APIKey: "super-secret"})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "p")
	var remote *RemoteAPIError
	require.ErrorAs(t, err, &remote)
	assert.False(t, strings.Contains(err.Error(), "super-secret"), "error leaks key: %v", err)
}

func TestRequestStateMachine(t *testing.T) {
	r := NewRequest(ModeCorrection, 3)
	assert.NotEmpty(t, r.ID)
	require.ErrorIs(t, r.Settle(), ErrInvalidTransition)
	require.NoError(t, r.Start())
	require.ErrorIs(t, r.Start(), ErrInvalidTransition)
	require.NoError(t, r.Resolve(Suggestion{Text: "fixed"}, nil))
	assert.Equal(t, StateReady, r.State)
	require.NoError(t, r.Settle())
	assert.Equal(t, StateIdle, r.State)

	failed := NewRequest(ModeOptimization, 1)
	require.NoError(t, failed.Start())
	require.NoError(t, failed.Resolve(Suggestion{}, errors.New("boom")))
	assert.Equal(t, StateFailed, failed.State)
	require.ErrorIs(t, failed.Start(), ErrInvalidTransition)
}
