package landmark

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ai-interview-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedDetector struct {
	loadErr error
	calls   atomic.Int32
}

func (d *scriptedDetector) Load(ctx context.Context) error {
	return d.loadErr
}

// Detect fails on the first call, panics on the second and succeeds afterwards.
func (d *scriptedDetector) Detect(ctx context.Context, at time.Time) (*Snapshot, error) {
	switch d.calls.Add(1) {
	case 1:
		return nil, errors.New("gpu lost")
	case 2:
		panic("wasm trap")
	default:
		return NewSnapshot(map[string]float64{"jawOpen": 0.5}, at), nil
	}
}

type switchSource struct {
	mu      sync.Mutex
	playing bool
}

func (s *switchSource) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *switchSource) set(v bool) {
	s.mu.Lock()
	s.playing = v
	s.mu.Unlock()
}

func newTestAdapter(d Detector) *Adapter {
	return NewAdapter(d, logger.NewNopLogger(), Options{Interval: time.Millisecond})
}

func TestAdapterSurvivesFailingTicks(t *testing.T) {
	detector := &scriptedDetector{}
	a := newTestAdapter(detector)
	a.Init(context.Background())

	require.NoError(t, a.WaitReady(context.Background()))
	assert.True(t, a.Ready())

	source := &switchSource{playing: true}
	a.Start(source)
	defer a.Stop()

	assert.Eventually(t, func() bool {
		_, ok := a.Latest()
		return ok
	}, time.Second, time.Millisecond)

	snap, _ := a.Latest()
	assert.Equal(t, 0.5, snap.Score("jawOpen"))
	assert.GreaterOrEqual(t, detector.calls.Load(), int32(3))
}

func TestAdapterLatestIsNoneWhenSourceNotPlaying(t *testing.T) {
	a := newTestAdapter(&scriptedDetector{})
	a.Init(context.Background())
	require.NoError(t, a.WaitReady(context.Background()))

	source := &switchSource{playing: true}
	a.Start(source)
	defer a.Stop()

	assert.Eventually(t, func() bool {
		_, ok := a.Latest()
		return ok
	}, time.Second, time.Millisecond)

	source.set(false)
	_, ok := a.Latest()
	assert.False(t, ok)
}

func TestAdapterNeverDetectedIsNone(t *testing.T) {
	a := newTestAdapter(&scriptedDetector{})
	_, ok := a.Latest()
	assert.False(t, ok)
	assert.False(t, a.Ready())
}

func TestAdapterLoadFailure(t *testing.T) {
	a := newTestAdapter(&scriptedDetector{loadErr: errors.New("model fetch failed")})
	a.Init(context.Background())

	err := a.WaitReady(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model fetch failed")
	assert.False(t, a.Ready())
}

func TestAdapterWaitReadyHonoursContext(t *testing.T) {
	a := newTestAdapter(&scriptedDetector{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, a.WaitReady(ctx), context.DeadlineExceeded)
}

func TestSnapshotIsCopied(t *testing.T) {
	scores := map[string]float64{"mouthSmileLeft": 0.7}
	snap := NewSnapshot(scores, time.Now())

	scores["mouthSmileLeft"] = 0
	assert.Equal(t, 0.7, snap.Score("mouthSmileLeft"))
	assert.Equal(t, 0.0, snap.Score("missing"))

	out := snap.Scores()
	out["mouthSmileLeft"] = 0
	assert.Equal(t, 0.7, snap.Score("mouthSmileLeft"))
}
