package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-interview-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequestShape(t *testing.T) {
	var got generateRequest
	var path, key string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Why Go?"},{"text":" Be brief."}]}}]}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL+"/", "secret", "gemini-2.0-flash")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "You are an interviewer."},
		{Role: llm.RoleUser, Content: "Start."},
		{Role: llm.RoleAssistant, Content: "Hello."},
	}, llm.WithJSON(), llm.WithMaxTokens(128))

	require.NoError(t, err)
	assert.Equal(t, "Why Go? Be brief.", out)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", path)
	assert.Equal(t, "secret", key)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "You are an interviewer.", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 2)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
	assert.Equal(t, 128, got.GenerationConfig.MaxOutputTokens)
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "non 200 status", status: http.StatusTooManyRequests, body: `{"error":{"message":"quota"}}`},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`},
		{name: "blocked prompt", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{name: "invalid json", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGeminiProvider(srv.URL, "k", "m").Generate(context.Background(), "hi")
			assert.Error(t, err)
		})
	}
}

func TestEmptyCandidatesIsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := NewGeminiProvider(srv.URL, "k", "m").Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
