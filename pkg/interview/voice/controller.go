package voice

import (
	"context"
	"strings"
	"sync"

	"ai-interview-be/internal/pkg/logger"
)

const module = "SpeechOutput"

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays audio and returns once playback ended or failed.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

type Controller struct {
	synth  Synthesizer
	player Player
	logger logger.ILogger

	// turn serializes Speak so only one synthesis is in flight.
	turn sync.Mutex

	mu       sync.Mutex
	speaking bool
}

func NewController(synth Synthesizer, player Player, log logger.ILogger) *Controller {
	return &Controller{
		synth:  synth,
		player: player,
		logger: log,
	}
}

// Synthesize performs one remote synthesis call. It returns nil on failure.
func (c *Controller) Synthesize(ctx context.Context, text string) []byte {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	audio, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		c.logger.Error(module, "Speech synthesis failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if len(audio) == 0 {
		c.logger.Warn(module, "Speech synthesis returned no audio", nil)
		return nil
	}
	return audio
}

// Speak synthesizes text and plays it. It returns once playback finished,
// failed, or there was nothing to play; the result reports whether audio played.
func (c *Controller) Speak(ctx context.Context, text string) bool {
	c.turn.Lock()
	defer c.turn.Unlock()

	c.setSpeaking(true)
	defer c.setSpeaking(false)

	audio := c.Synthesize(ctx, text)
	if audio == nil {
		return false
	}

	if err := c.player.Play(ctx, audio); err != nil {
		c.logger.Warn(module, "Playback failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// Speaking reports whether a Speak call is in progress.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

func (c *Controller) setSpeaking(v bool) {
	c.mu.Lock()
	c.speaking = v
	c.mu.Unlock()
}
