package speech

import (
	"errors"
	"testing"
	"time"

	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/pkg/clock"

	"github.com/stretchr/testify/assert"
)

type fakeEngine struct {
	starts   int
	stops    int
	startErr error
	stopErr  error
}

func (e *fakeEngine) Start() error {
	e.starts++
	return e.startErr
}

func (e *fakeEngine) Stop() error {
	e.stops++
	return e.stopErr
}

func newTestController() (*Controller, *fakeEngine, *clock.Manual) {
	engine := &fakeEngine{}
	sched := clock.NewManual()
	c := NewController(engine, sched, logger.NewNopLogger(), DefaultOptions())
	return c, engine, sched
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	c, engine, _ := newTestController()

	c.Stop()

	assert.Equal(t, 0, engine.stops)
	assert.Equal(t, StateIdle, c.State())
}

func TestStartWhileListeningIsNoop(t *testing.T) {
	c, engine, _ := newTestController()

	c.Start()
	c.Start()

	assert.Equal(t, 1, engine.starts)
	assert.Equal(t, StateListening, c.State())
}

func TestStartWhileStoppingRestartsAfterEnded(t *testing.T) {
	c, engine, sched := newTestController()

	c.Start()
	c.Stop()
	assert.Equal(t, StateStopping, c.State())

	c.Start()
	assert.Equal(t, 1, engine.starts, "must not start a second session while stopping")
	assert.Equal(t, IntentRestart, c.Pending())

	c.HandleEnded()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, IntentNone, c.Pending())
	assert.Equal(t, 1, engine.starts)

	sched.Advance(DefaultOptions().RestartDelay)
	assert.Equal(t, StateListening, c.State())
	assert.Equal(t, 2, engine.starts)
}

func TestStopWithdrawsDeferredRestart(t *testing.T) {
	c, engine, sched := newTestController()

	c.Start()
	c.Stop()
	c.Start()
	c.HandleEnded()

	c.Stop()
	sched.Advance(time.Second)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, engine.starts)
	assert.Equal(t, 1, engine.stops)
}

func TestStopWhileStoppingDoesNotCallEngine(t *testing.T) {
	c, engine, _ := newTestController()

	c.Start()
	c.Stop()
	c.Stop()

	assert.Equal(t, 1, engine.stops)
	assert.Equal(t, StateStopping, c.State())
}

func TestEndedWithoutRestartStaysIdle(t *testing.T) {
	c, engine, sched := newTestController()

	c.Start()
	c.Stop()
	c.HandleEnded()
	sched.Advance(time.Second)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, engine.starts)
}

func TestStartFailureRevertsToIdle(t *testing.T) {
	c, engine, _ := newTestController()
	engine.startErr = errors.New("not-allowed")

	c.Start()

	assert.Equal(t, StateIdle, c.State())
}

func TestStopFailureKeepsListening(t *testing.T) {
	c, engine, _ := newTestController()

	c.Start()
	engine.stopErr = errors.New("invalid state")
	c.Stop()

	assert.Equal(t, StateListening, c.State())
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		wantState State
	}{
		{name: "no-speech is ignored", code: ErrorNoSpeech, wantState: StateListening},
		{name: "network error resets", code: "network", wantState: StateIdle},
		{name: "aborted resets", code: "aborted", wantState: StateIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController()
			c.Start()

			c.HandleError(tt.code)

			assert.Equal(t, tt.wantState, c.State())
		})
	}
}

func TestErrorDropsPendingRestart(t *testing.T) {
	c, engine, sched := newTestController()

	c.Start()
	c.Stop()
	c.Start()
	c.HandleError("audio-capture")
	c.HandleEnded()
	sched.Advance(time.Second)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, engine.starts)
}

func TestResultsPartitionFinalAndInterim(t *testing.T) {
	var updates [][2]string
	engine := &fakeEngine{}
	c := NewController(engine, clock.NewManual(), logger.NewNopLogger(), Options{
		OnUpdate: func(transcript, interim string) {
			updates = append(updates, [2]string{transcript, interim})
		},
	})

	c.Start()
	c.HandleResults(0, []Result{{Text: "I led", Final: false}})
	assert.Equal(t, "", c.Transcript())
	assert.Equal(t, "I led", c.Interim())

	c.HandleResults(0, []Result{
		{Text: "I led the migration", Final: true},
		{Text: "to postgres", Final: false},
	})
	assert.Equal(t, "I led the migration", c.Transcript())
	assert.Equal(t, "to postgres", c.Interim())

	// Index 1 means result 0 was already delivered.
	c.HandleResults(1, []Result{
		{Text: "I led the migration", Final: true},
		{Text: " to postgres last year", Final: true},
	})
	assert.Equal(t, "I led the migration to postgres last year", c.Transcript())
	assert.Equal(t, "", c.Interim())

	assert.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, "I led the migration to postgres last year", last[0])
}

func TestStartClearsInterimButKeepsTranscript(t *testing.T) {
	c, _, _ := newTestController()

	c.Start()
	c.HandleResults(0, []Result{{Text: "hello", Final: true}, {Text: "wor", Final: false}})
	c.Stop()
	c.HandleEnded()
	c.Start()

	assert.Equal(t, "hello", c.Transcript())
	assert.Equal(t, "", c.Interim())

	c.Reset()
	assert.Equal(t, "", c.Transcript())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "stopping", StateStopping.String())
}
