// Package speech drives a continuous, interruptible speech recognizer.
//
// The controller is a small state machine:
//
//	Idle --Start--> Listening --Stop--> Stopping --ended--> Idle
//
// A Start that arrives while Stopping is remembered as a pending restart and
// replayed once the engine reports it has ended.
package speech

import (
	"strings"
	"sync"
	"time"

	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/pkg/clock"
)

const module = "SpeechCapture"

// ErrorNoSpeech is reported by recognizers when a silence window elapsed.
const ErrorNoSpeech = "no-speech"

type State int

const (
	StateIdle State = iota
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// Intent is work deferred until the engine has fully stopped.
type Intent int

const (
	IntentNone Intent = iota
	IntentRestart
)

// Engine is the underlying recognizer. Start and Stop only request the
// transition; completion is reported through the controller's Handle methods.
type Engine interface {
	Start() error
	Stop() error
}

// Result is one recognition hypothesis.
type Result struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type Options struct {
	// RestartDelay lets the engine release its resources before a deferred restart.
	RestartDelay time.Duration
	// OnUpdate is called after the transcript or interim text changed.
	OnUpdate func(transcript, interim string)
}

func DefaultOptions() Options {
	return Options{RestartDelay: 300 * time.Millisecond}
}

type Controller struct {
	engine    Engine
	scheduler clock.Scheduler
	logger    logger.ILogger
	opts      Options

	mu         sync.Mutex
	state      State
	pending    Intent
	transcript string
	interim    string
	restart    clock.Timer
}

func NewController(engine Engine, scheduler clock.Scheduler, log logger.ILogger, opts Options) *Controller {
	if scheduler == nil {
		scheduler = clock.Real()
	}
	return &Controller{
		engine:    engine,
		scheduler: scheduler,
		logger:    log,
		opts:      opts,
	}
}

// Start begins listening. It is a no-op while listening and is deferred while stopping.
func (c *Controller) Start() {
	c.mu.Lock()
	switch c.state {
	case StateListening:
		c.mu.Unlock()
		return
	case StateStopping:
		c.pending = IntentRestart
		c.mu.Unlock()
		c.logger.Debug(module, "Start deferred until recognizer stops", nil)
		return
	}
	c.state = StateListening
	c.interim = ""
	c.restart = nil
	c.mu.Unlock()

	c.notify()

	if err := c.engine.Start(); err != nil {
		c.logger.Error(module, "Failed to start recognizer", map[string]interface{}{"error": err.Error()})
		c.mu.Lock()
		if c.state == StateListening {
			c.state = StateIdle
		}
		c.mu.Unlock()
	}
}

// Stop asks the engine to stop. The engine is only called when listening;
// otherwise Stop just withdraws a deferred restart.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateListening {
		c.pending = IntentNone
		if c.restart != nil {
			c.restart.Stop()
			c.restart = nil
		}
		c.mu.Unlock()
		return
	}
	c.state = StateStopping
	c.mu.Unlock()

	if err := c.engine.Stop(); err != nil {
		c.logger.Error(module, "Failed to stop recognizer", map[string]interface{}{"error": err.Error()})
		c.mu.Lock()
		if c.state == StateStopping {
			c.state = StateListening
		}
		c.mu.Unlock()
	}
}

// HandleResults consumes a recognition update. Results before index were
// already delivered; final ones are appended, the rest replace the interim text.
func (c *Controller) HandleResults(index int, results []Result) {
	if index < 0 {
		index = 0
	}

	var final, interim strings.Builder
	for i := index; i < len(results); i++ {
		if results[i].Final {
			final.WriteString(results[i].Text)
		} else {
			interim.WriteString(results[i].Text)
		}
	}

	c.mu.Lock()
	if text := strings.TrimSpace(final.String()); text != "" {
		c.transcript = strings.TrimSpace(c.transcript + " " + text)
	}
	c.interim = interim.String()
	c.mu.Unlock()

	c.notify()
}

// HandleEnded is the engine's terminal notification for a recognition session.
func (c *Controller) HandleEnded() {
	c.mu.Lock()
	c.state = StateIdle
	restart := c.pending == IntentRestart
	c.pending = IntentNone
	if restart {
		c.restart = c.scheduler.AfterFunc(c.opts.RestartDelay, c.Start)
	}
	c.mu.Unlock()

	c.logger.Debug(module, "Recognizer ended", map[string]interface{}{"restart": restart})
}

// HandleError processes an engine error. no-speech is ignored; anything else
// resets the controller to idle and drops a pending restart.
func (c *Controller) HandleError(code string) {
	if code == ErrorNoSpeech {
		return
	}

	c.mu.Lock()
	c.state = StateIdle
	c.pending = IntentNone
	if c.restart != nil {
		c.restart.Stop()
		c.restart = nil
	}
	c.mu.Unlock()

	c.logger.Warn(module, "Recognizer error, reset to idle", map[string]interface{}{"code": code})
}

// Reset clears the accumulated transcript and interim text for a new turn.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.transcript = ""
	c.interim = ""
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the deferred intent, if any.
func (c *Controller) Pending() Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Transcript returns only finalized text.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

func (c *Controller) Interim() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}

func (c *Controller) notify() {
	if c.opts.OnUpdate == nil {
		return
	}
	c.mu.Lock()
	transcript, interim := c.transcript, c.interim
	c.mu.Unlock()
	c.opts.OnUpdate(transcript, interim)
}
