package landmark

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-interview-be/internal/pkg/logger"
)

const module = "LandmarkAdapter"

// Detector is the black-box face landmark model.
type Detector interface {
	// Load initializes the model. It may block until the model is usable.
	Load(ctx context.Context) error
	// Detect runs one detection. A nil snapshot means no face this frame.
	Detect(ctx context.Context, at time.Time) (*Snapshot, error)
}

// VideoSource reports whether the camera feed is actively playing.
type VideoSource interface {
	Playing() bool
}

type Options struct {
	// Interval between detection ticks. One animation frame at 30 fps by default.
	Interval time.Duration
}

func DefaultOptions() Options {
	return Options{Interval: time.Second / 30}
}

// Adapter samples a detector in a background loop and keeps the latest result.
type Adapter struct {
	detector Detector
	logger   logger.ILogger
	opts     Options

	ready     chan struct{}
	readyOnce sync.Once
	initOnce  sync.Once

	mu      sync.RWMutex
	loadErr error
	source  VideoSource
	latest  *Snapshot
	cancel  context.CancelFunc
}

func NewAdapter(detector Detector, log logger.ILogger, opts Options) *Adapter {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	return &Adapter{
		detector: detector,
		logger:   log,
		opts:     opts,
		ready:    make(chan struct{}),
	}
}

// Init starts loading the detector model in the background.
func (a *Adapter) Init(ctx context.Context) {
	a.initOnce.Do(func() {
		go func() {
			err := a.detector.Load(ctx)
			a.mu.Lock()
			a.loadErr = err
			a.mu.Unlock()
			if err != nil {
				a.logger.Error(module, "Landmark model failed to load", map[string]interface{}{"error": err.Error()})
			} else {
				a.logger.Info(module, "Landmark model ready", nil)
			}
			a.readyOnce.Do(func() { close(a.ready) })
		}()
	})
}

// Ready reports whether the model finished loading successfully.
func (a *Adapter) Ready() bool {
	select {
	case <-a.ready:
		a.mu.RLock()
		defer a.mu.RUnlock()
		return a.loadErr == nil
	default:
		return false
	}
}

// WaitReady blocks until the model finished loading. It returns the load error, if any.
func (a *Adapter) WaitReady(ctx context.Context) error {
	select {
	case <-a.ready:
		a.mu.RLock()
		defer a.mu.RUnlock()
		if a.loadErr != nil {
			return fmt.Errorf("landmark model: %w", a.loadErr)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins the detection loop against source once the model is ready.
// Calling Start again replaces the source and restarts the loop.
func (a *Adapter) Start(source VideoSource) {
	a.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.source = source
	a.cancel = cancel
	a.mu.Unlock()

	go a.loop(ctx)
}

// Stop cancels the detection loop. The last snapshot is kept.
func (a *Adapter) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Latest returns the most recent detection, or false if nothing was detected
// yet or the video source is not playing.
func (a *Adapter) Latest() (*Snapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.source == nil || !a.source.Playing() || a.latest == nil {
		return nil, false
	}
	return a.latest, true
}

func (a *Adapter) loop(ctx context.Context) {
	select {
	case <-a.ready:
	case <-ctx.Done():
		return
	}
	if !a.Ready() {
		return
	}

	ticker := time.NewTicker(a.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.tick(ctx, now)
		}
	}
}

// tick runs one detection. Failures only skip this tick.
func (a *Adapter) tick(ctx context.Context, now time.Time) {
	a.mu.RLock()
	source := a.source
	a.mu.RUnlock()

	if source == nil || !source.Playing() {
		return
	}

	snapshot, err := a.detect(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn(module, "Detection tick failed", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	a.mu.Lock()
	a.latest = snapshot
	a.mu.Unlock()
}

func (a *Adapter) detect(ctx context.Context, now time.Time) (snapshot *Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snapshot = nil
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return a.detector.Detect(ctx, now)
}
