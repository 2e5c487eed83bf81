// Package session owns the turn-taking lifecycle of one live interview.
//
// A Session coordinates the landmark adapter, speech capture, speech output
// and the remote question/evaluation oracle so that the interviewer never
// speaks while the candidate is being listened to, and every remote failure
// falls back to a fixed default instead of stalling the interview.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/pkg/clock"
	"ai-interview-be/pkg/interview/behavior"
	"ai-interview-be/pkg/interview/landmark"

	"github.com/google/uuid"
)

const module = "InterviewSession"

const (
	SkippedAnswer         = "[User skipped or provided no verbal answer]"
	FollowUpFallback      = "Tell me more about your experience with that."
	FirstQuestionFallback = "Tell me about a time you faced a challenge at work."

	PathDashboard = "/dashboard"
)

var (
	ErrBusy            = errors.New("a question, speech or evaluation is already in flight")
	ErrNotInterviewing = errors.New("interview is not running")
	ErrRecordNotFound  = errors.New("interview record not found")
)

type Phase string

const (
	PhaseInitializing          Phase = "INITIALIZING"
	PhaseAwaitingFirstQuestion Phase = "AWAITING_FIRST_QUESTION"
	PhaseSpeaking              Phase = "SPEAKING"
	PhaseListening             Phase = "LISTENING"
	PhaseThinking              Phase = "THINKING"
	PhaseSaving                Phase = "SAVING"
	PhaseTerminated            Phase = "TERMINATED"
	PhaseError                 Phase = "ERROR"
)

// Turn is one finished question and answer.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Record is the persisted interview setup.
type Record struct {
	ID         uuid.UUID
	Type       string
	Difficulty string
	CVSummary  string
}

type Insight struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Evaluation struct {
	Score           int       `json:"score"`
	AnswerScore     int       `json:"answerScore"`
	ClarityScore    int       `json:"clarityScore"`
	ConfidenceScore int       `json:"confidenceScore"`
	Feedback        []Insight `json:"feedback"`
	KeyInsights     []Insight `json:"keyInsights"`
}

// Result is what gets persisted when the call ends.
type Result struct {
	Evaluation
	Transcript string
	Metrics    *behavior.Profile
}

type Store interface {
	// Get returns nil without error when the record does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	Complete(ctx context.Context, id uuid.UUID, result Result) error
}

type Oracle interface {
	GetQuestion(ctx context.Context, prompt string) (string, error)
	Evaluate(ctx context.Context, transcript string, metrics *behavior.Profile) (*Evaluation, error)
}

type Landmarks interface {
	WaitReady(ctx context.Context) error
	Start(source landmark.VideoSource)
	Latest() (*landmark.Snapshot, bool)
	Stop()
}

type Capture interface {
	Start()
	Stop()
	Transcript() string
	Reset()
}

type Speaker interface {
	Speak(ctx context.Context, text string) bool
}

// Devices acquires camera and microphone. The returned release func must be
// safe to call once.
type Devices interface {
	Acquire(ctx context.Context, video bool) (func(), error)
}

type Navigator interface {
	Navigate(ctx context.Context, path string)
}

type Dependencies struct {
	Store     Store
	Oracle    Oracle
	Landmarks Landmarks
	Video     landmark.VideoSource
	Capture   Capture
	Speaker   Speaker
	Devices   Devices
	Navigator Navigator
	Logger    logger.ILogger
}

type Options struct {
	// ResumeDelay keeps the recognizer from hearing the tail of the interviewer's voice.
	ResumeDelay time.Duration
	Scheduler   clock.Scheduler
	Thresholds  behavior.Thresholds
	OnChange    func(State)
}

func DefaultOptions() Options {
	return Options{
		ResumeDelay: 500 * time.Millisecond,
		Scheduler:   clock.Real(),
		Thresholds:  behavior.DefaultThresholds(),
	}
}

// State is a point-in-time copy of the session.
type State struct {
	ID           uuid.UUID `json:"id"`
	Phase        Phase     `json:"phase"`
	Type         string    `json:"type,omitempty"`
	Difficulty   string    `json:"difficulty,omitempty"`
	Question     string    `json:"question"`
	History      []Turn    `json:"history"`
	Interviewing bool      `json:"interviewing"`
	Thinking     bool      `json:"thinking"`
	Speaking     bool      `json:"speaking"`
	Muted        bool      `json:"muted"`
	VideoEnabled bool      `json:"videoEnabled"`
}

type Session struct {
	id        uuid.UUID
	deps      Dependencies
	opts      Options
	extractor *behavior.Extractor
	log       logger.ILogger

	// ctx is cancelled when the call ends; in-flight questions and speech
	// are bound to it.
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the flags below. Capture start/stop is issued while holding
	// mu so a flag change and its capture transition are observed together.
	mu           sync.Mutex
	phase        Phase
	record       *Record
	question     string
	history      []Turn
	turnOpen     bool
	interviewing bool
	thinking     bool
	speaking     bool
	ending       bool
	muted        bool
	videoEnabled bool
	cameraFailed bool
	resume       clock.Timer
	release      func()

	// saving tracks a begun end call that Close must let finish.
	saving sync.WaitGroup
}

func New(id uuid.UUID, deps Dependencies, opts Options) *Session {
	if opts.Scheduler == nil {
		opts.Scheduler = clock.Real()
	}
	if opts.Thresholds == (behavior.Thresholds{}) {
		opts.Thresholds = behavior.DefaultThresholds()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:           id,
		deps:         deps,
		opts:         opts,
		extractor:    behavior.New(opts.Thresholds),
		log:          deps.Logger,
		ctx:          ctx,
		cancel:       cancel,
		phase:        PhaseInitializing,
		videoEnabled: true,
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:           s.id,
		Phase:        s.phase,
		Question:     s.question,
		History:      append([]Turn{}, s.history...),
		Interviewing: s.interviewing,
		Thinking:     s.thinking,
		Speaking:     s.speaking,
		Muted:        s.muted,
		VideoEnabled: s.videoEnabled,
	}
	if s.record != nil {
		st.Type = s.record.Type
		st.Difficulty = s.record.Difficulty
	}
	return st
}

// Expression returns the current expression label from the latest detection.
func (s *Session) Expression() string {
	return s.extractor.Expression(s.latest())
}

func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	if s.muted == muted {
		s.mu.Unlock()
		return
	}
	s.muted = muted
	if muted {
		s.deps.Capture.Stop()
	} else if s.interviewing && !s.speaking && !s.thinking && s.resume == nil {
		// A pending resume timer will start capture on its own.
		s.deps.Capture.Start()
	}
	s.mu.Unlock()

	s.log.Info(module, "Mute changed", map[string]interface{}{"session_id": s.id.String(), "muted": muted})
	s.notify()
}

// ToggleMute flips the mute flag and returns the new value.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	muted := !s.muted
	s.mu.Unlock()

	s.SetMuted(muted)
	return muted
}

// SetVideoEnabled turns behavior tracking on or off. Enabling after a camera
// failure retries the camera; it returns the resulting flag.
func (s *Session) SetVideoEnabled(ctx context.Context, enabled bool) bool {
	s.mu.Lock()
	if s.ending || s.videoEnabled == enabled {
		current := s.videoEnabled
		s.mu.Unlock()
		return current
	}
	retryCamera := enabled && s.cameraFailed
	s.mu.Unlock()

	if retryCamera {
		release, err := s.deps.Devices.Acquire(ctx, true)
		if err != nil {
			s.log.Warn(module, "Camera still unavailable", map[string]interface{}{"session_id": s.id.String(), "error": err.Error()})
			return false
		}
		s.swapRelease(release)
	}

	s.mu.Lock()
	s.videoEnabled = enabled
	if retryCamera {
		s.cameraFailed = false
	}
	s.mu.Unlock()

	if enabled {
		s.deps.Landmarks.Start(s.deps.Video)
	} else {
		s.deps.Landmarks.Stop()
	}
	s.notify()
	return enabled
}

// Close tears the session down without evaluating, e.g. when the peer
// disconnects. If an end call already began, Close returns once it is saved.
func (s *Session) Close() {
	s.mu.Lock()
	s.ending = true
	s.interviewing = false
	s.cancelResume()
	s.deps.Capture.Stop()
	switch s.phase {
	case PhaseSaving, PhaseTerminated, PhaseError:
	default:
		s.phase = PhaseTerminated
	}
	s.mu.Unlock()

	s.cancel()
	s.deps.Landmarks.Stop()
	s.releaseDevices()
	s.notify()
	s.saving.Wait()
}

// bind derives a context that is also cancelled when the call ends.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) latest() *landmark.Snapshot {
	snapshot, ok := s.deps.Landmarks.Latest()
	if !ok {
		return nil
	}
	return snapshot
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.notify()
}

// cancelResume must be called with mu held.
func (s *Session) cancelResume() {
	if s.resume != nil {
		s.resume.Stop()
		s.resume = nil
	}
}

func (s *Session) releaseDevices() {
	s.mu.Lock()
	release := s.release
	s.release = nil
	s.mu.Unlock()

	if release != nil {
		release()
	}
}

func (s *Session) swapRelease(release func()) {
	s.mu.Lock()
	old := s.release
	s.release = release
	s.mu.Unlock()

	if old != nil {
		old()
	}
}

func (s *Session) notify() {
	if s.opts.OnChange == nil {
		return
	}
	s.opts.OnChange(s.State())
}
