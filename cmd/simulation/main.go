package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ai-interview-be/internal/config"
	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/internal/service"
	"ai-interview-be/pkg/clock"
	"ai-interview-be/pkg/interview/behavior"
	"ai-interview-be/pkg/interview/landmark"
	"ai-interview-be/pkg/interview/session"
	"ai-interview-be/pkg/interview/speech"
	"ai-interview-be/pkg/interview/voice"
	"ai-interview-be/pkg/llm/factory"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var answers = []string{
	"At my last job I led the migration of our billing system to a new provider while keeping the old one running.",
	"We ran both systems in parallel for a month and compared every invoice before switching traffic over.",
	"I learned to write the rollback plan before the rollout plan.",
}

// Scripted browser devices.

type scriptedEngine struct {
	capture *speech.Controller
}

func (e *scriptedEngine) Start() error { return nil }

func (e *scriptedEngine) Stop() error {
	go e.capture.HandleEnded()
	return nil
}

type scriptedFace struct{}

func (scriptedFace) Load(context.Context) error { return nil }

func (scriptedFace) Detect(_ context.Context, at time.Time) (*landmark.Snapshot, error) {
	return landmark.NewSnapshot(map[string]float64{
		behavior.MouthSmileLeft:  0.6,
		behavior.MouthSmileRight: 0.55,
	}, at), nil
}

func (scriptedFace) Playing() bool { return true }

type scriptedDevices struct{}

func (scriptedDevices) Acquire(_ context.Context, video bool) (func(), error) {
	color.Blue("[devices] camera=%v microphone=true", video)
	return func() { color.Blue("[devices] released") }, nil
}

// textSynth skips real synthesis; the "audio" is the text itself.
type textSynth struct{}

func (textSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte(text), nil
}

type consolePlayer struct{}

func (consolePlayer) Play(ctx context.Context, audio []byte) error {
	color.Cyan("INTERVIEWER: %s", audio)
	select {
	case <-time.After(200 * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type consoleNavigator struct {
	done chan string
}

func (n consoleNavigator) Navigate(_ context.Context, path string) {
	n.done <- path
}

type memoryStore struct {
	mu     sync.Mutex
	record *session.Record
	result *session.Result
}

func (s *memoryStore) Get(context.Context, uuid.UUID) (*session.Record, error) {
	return s.record, nil
}

func (s *memoryStore) Complete(_ context.Context, _ uuid.UUID, result session.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &result
	return nil
}

// cannedOracle stands in for the LLM when no provider is configured.
type cannedOracle struct{ asked int }

func (o *cannedOracle) GetQuestion(context.Context, string) (string, error) {
	o.asked++
	return fmt.Sprintf("Question %d: tell me about a decision you would make differently today.", o.asked), nil
}

func (o *cannedOracle) Evaluate(context.Context, string, *behavior.Profile) (*session.Evaluation, error) {
	return &session.Evaluation{
		Score: 74, AnswerScore: 78, ClarityScore: 72, ConfidenceScore: 70,
		Feedback:    []session.Insight{{Type: "positive", Text: "Concrete example with a clear outcome."}},
		KeyInsights: []session.Insight{{Type: "tip", Text: "Quantify the impact of the migration."}},
	}, nil
}

func main() {
	offline := flag.Bool("offline", false, "use a canned oracle instead of the configured LLM")
	interviewType := flag.String("type", "general", "interview type")
	difficulty := flag.String("difficulty", "medium", "interview difficulty")
	flag.Parse()

	cfg := config.Load()
	nop := logger.NewNopLogger()

	var oracle session.Oracle = &cannedOracle{}
	if !*offline {
		provider, err := factory.NewLLMProvider(factory.Settings{
			Provider: cfg.Ai.LLMProvider,
			Model:    cfg.Ai.LLMModel,
			BaseURL:  baseURL(cfg),
			APIKey:   cfg.Keys.GoogleGemini,
		})
		if err != nil {
			color.Yellow("LLM unavailable (%v), using canned questions", err)
		} else {
			oracle = service.NewOracleService(provider, nop)
		}
	}

	id := uuid.New()
	store := &memoryStore{record: &session.Record{ID: id, Type: *interviewType, Difficulty: *difficulty}}
	navigator := consoleNavigator{done: make(chan string, 1)}

	engine := &scriptedEngine{}
	capture := speech.NewController(engine, clock.Real(), nop, speech.DefaultOptions())
	engine.capture = capture
	landmarks := landmark.NewAdapter(scriptedFace{}, nop, landmark.DefaultOptions())

	opts := session.DefaultOptions()
	sess := session.New(id, session.Dependencies{
		Store:     store,
		Oracle:    oracle,
		Landmarks: landmarks,
		Video:     scriptedFace{},
		Capture:   capture,
		Speaker:   voice.NewController(textSynth{}, consolePlayer{}, nop),
		Devices:   scriptedDevices{},
		Navigator: navigator,
		Logger:    nop,
	}, opts)
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	color.Green("=== Interview %s (%s, %s) ===", id, *interviewType, *difficulty)
	landmarks.Init(ctx)
	if err := sess.Run(ctx); err != nil {
		log.Fatalf("session setup failed: %v", err)
	}

	for i, answer := range answers {
		if err := waitFor(ctx, sess, session.PhaseListening); err != nil {
			log.Fatalf("waiting for turn %d: %v", i+1, err)
		}
		color.White("CANDIDATE: %s", answer)
		capture.HandleResults(0, []speech.Result{{Text: answer, Final: true}})

		if i == len(answers)-1 {
			break
		}
		if err := sess.HandleNextQuestion(ctx); err != nil {
			log.Fatalf("next question: %v", err)
		}
	}

	color.Yellow("Ending call, expression: %s", sess.Expression())
	sess.HandleEndCall(ctx)
	color.Green("Navigated to %s", <-navigator.done)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.result == nil {
		color.Red("No result was saved")
		return
	}
	r := store.result
	color.Magenta("Score %d (answer %d, clarity %d, confidence %d)", r.Score, r.AnswerScore, r.ClarityScore, r.ConfidenceScore)
	for _, f := range r.Feedback {
		color.Magenta("  [%s] %s", f.Type, f.Text)
	}
	if r.Metrics != nil {
		color.Magenta("Behavior: %s, confidence %.2f", r.Metrics.Status, r.Metrics.Confidence)
	}
	fmt.Println(strings.Repeat("-", 40))
	fmt.Println(r.Transcript)
}

func waitFor(ctx context.Context, sess *session.Session, phase session.Phase) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if st := sess.State(); st.Phase == phase {
			return nil
		} else if st.Phase == session.PhaseError || st.Phase == session.PhaseTerminated {
			return fmt.Errorf("session entered %s", st.Phase)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func baseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.GeminiBaseURL
}
