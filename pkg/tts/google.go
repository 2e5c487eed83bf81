// Package tts is a client for the Google Cloud Text-to-Speech REST API.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://texttospeech.googleapis.com"
	DefaultLanguage = "en-US"
	DefaultVoice    = "en-US-Neural2-F"

	// MimeType is the encoding returned by Synthesize.
	MimeType = "audio/mpeg"
)

var ErrNoAudio = errors.New("tts response carried no audio content")

type GoogleSynthesizer struct {
	BaseURL  string
	APIKey   string
	Language string
	Voice    string
	Client   *http.Client
}

func NewGoogleSynthesizer(baseURL, apiKey, language, voice string) *GoogleSynthesizer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = DefaultLanguage
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &GoogleSynthesizer{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Language: language,
		Voice:    voice,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize returns MP3 audio for text.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var payload synthesizeRequest
	payload.Input.Text = text
	payload.Voice.LanguageCode = g.Language
	payload.Voice.Name = g.Voice
	payload.AudioConfig.AudioEncoding = "MP3"

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := g.BaseURL + "/v1/text:synthesize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The key stays out of the URL so transport errors never carry it.
	req.Header.Set("X-Goog-Api-Key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out synthesizeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if out.AudioContent == "" {
		return nil, ErrNoAudio
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return audio, nil
}
