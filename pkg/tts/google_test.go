package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize(t *testing.T) {
	var got synthesizeRequest
	var key, path, rawQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("X-Goog-Api-Key")
		rawQuery = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(synthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("ID3-mp3-bytes")),
		})
	}))
	defer srv.Close()

	audio, err := NewGoogleSynthesizer(srv.URL, "tts-key", "", "").Synthesize(context.Background(), "Tell me about yourself.")

	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-mp3-bytes"), audio)
	assert.Equal(t, "/v1/text:synthesize", path)
	assert.Equal(t, "tts-key", key)
	assert.Empty(t, rawQuery)
	assert.Equal(t, "Tell me about yourself.", got.Input.Text)
	assert.Equal(t, "en-US", got.Voice.LanguageCode)
	assert.Equal(t, "en-US-Neural2-F", got.Voice.Name)
	assert.Equal(t, "MP3", got.AudioConfig.AudioEncoding)
}

func TestSynthesizeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "status error", status: http.StatusForbidden, body: `{"error":{"message":"API key not valid"}}`},
		{name: "missing audio", status: http.StatusOK, body: `{}`},
		{name: "bad base64", status: http.StatusOK, body: `{"audioContent":"%%%"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			audio, err := NewGoogleSynthesizer(srv.URL, "k", "", "").Synthesize(context.Background(), "hi")
			assert.Error(t, err)
			assert.Nil(t, audio)
		})
	}
}

func TestSynthesizeTransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	audio, err := NewGoogleSynthesizer(url, "secret-tts-key", "", "").Synthesize(context.Background(), "hi")

	require.Error(t, err)
	assert.Nil(t, audio)
	assert.NotContains(t, err.Error(), "secret-tts-key")
}
