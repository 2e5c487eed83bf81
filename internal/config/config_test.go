package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	cfg := Load()

	assert.Equal(t, "", cfg.Ai.LLMProvider, "an explicitly empty variable wins over the default")
	assert.Equal(t, 500*time.Millisecond, cfg.Interview.ResumeDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.Interview.RestartDelay)
	assert.Equal(t, "en-US-Neural2-F", cfg.Ai.TTSVoice)
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "750ms", want: 750 * time.Millisecond},
		{name: "plain milliseconds", value: "250", want: 250 * time.Millisecond},
		{name: "garbage falls back", value: "soon", want: time.Second},
		{name: "empty falls back", value: "", want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", time.Second))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_FLAG", "true")
	assert.True(t, getEnvAsBool("TEST_FLAG", false))

	t.Setenv("TEST_FLAG", "nope")
	assert.False(t, getEnvAsBool("TEST_FLAG", false))
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "production"}}
	assert.True(t, cfg.IsProduction())

	cfg.App.Environment = "development"
	assert.False(t, cfg.IsProduction())
}
