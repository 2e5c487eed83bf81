package session

import (
	"context"
	"strings"
	"sync"

	"ai-interview-be/pkg/interview/behavior"
)

// Run performs setup and asks the first question. It returns once the first
// question was spoken; later turns are driven by HandleNextQuestion.
func (s *Session) Run(ctx context.Context) error {
	ctx, done := s.bind(ctx)
	defer done()

	s.setPhase(PhaseInitializing)
	s.acquireDevices(ctx)

	if err := s.deps.Landmarks.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return s.abort(ctx.Err())
		}
		s.log.Warn(module, "Landmark model unavailable, continuing without behavior signal", map[string]interface{}{
			"session_id": s.id.String(),
			"error":      err.Error(),
		})
	} else if st := s.State(); st.VideoEnabled && st.Phase == PhaseInitializing {
		s.deps.Landmarks.Start(s.deps.Video)
	}

	record, err := s.deps.Store.Get(ctx, s.id)
	if ctx.Err() != nil {
		return s.abort(ctx.Err())
	}
	switch {
	case err != nil:
		s.log.Warn(module, "Failed to load interview setup, using generic context", map[string]interface{}{
			"session_id": s.id.String(),
			"error":      err.Error(),
		})
	case record == nil:
		s.fail(ctx, ErrRecordNotFound)
		return ErrRecordNotFound
	}

	s.mu.Lock()
	if s.ending {
		s.mu.Unlock()
		return nil
	}
	s.record = record
	s.interviewing = true
	s.thinking = true
	s.phase = PhaseAwaitingFirstQuestion
	s.mu.Unlock()
	s.notify()

	question, _ := s.askQuestion(ctx, firstQuestionContext(record))
	if question == "" {
		question = FirstQuestionFallback
	}
	if !s.beginSpeaking(question) {
		return nil
	}
	s.speak(ctx, question)

	s.log.Info(module, "Interview started", map[string]interface{}{"session_id": s.id.String()})
	return nil
}

// HandleNextQuestion closes the current turn and asks a follow-up.
func (s *Session) HandleNextQuestion(ctx context.Context) error {
	s.mu.Lock()
	if !s.interviewing {
		s.mu.Unlock()
		return ErrNotInterviewing
	}
	if s.thinking || s.speaking {
		s.mu.Unlock()
		return ErrBusy
	}
	s.thinking = true
	s.phase = PhaseThinking
	s.cancelResume()
	s.deps.Capture.Stop()
	s.mu.Unlock()

	ctx, done := s.bind(ctx)
	defer done()

	expression := s.Expression()
	answer := strings.TrimSpace(s.deps.Capture.Transcript())
	if answer == "" {
		answer = SkippedAnswer
	}

	s.mu.Lock()
	s.history = append(s.history, Turn{Question: s.question, Answer: answer})
	s.turnOpen = false
	prompt := followUpContext(answer, expression, s.record)
	s.mu.Unlock()
	s.notify()

	question, ok := s.askQuestion(ctx, prompt)
	s.deps.Capture.Reset()

	if !ok {
		s.mu.Lock()
		s.thinking = false
		if s.interviewing {
			s.question = FollowUpFallback
			s.turnOpen = true
			s.phase = PhaseListening
			if !s.muted {
				s.deps.Capture.Start()
			}
		}
		s.mu.Unlock()
		s.notify()
		return nil
	}

	if s.beginSpeaking(question) {
		s.speak(ctx, question)
	}
	return nil
}

// HandleEndCall evaluates and persists the interview, then navigates to the
// report, or to the dashboard when anything failed. It returns the path it
// navigated to, or "" if the call was already ending.
func (s *Session) HandleEndCall(ctx context.Context) string {
	finish := s.BeginEndCall()
	if finish == nil {
		return ""
	}
	return finish(ctx)
}

// BeginEndCall stops the call and closes the open turn immediately. The
// returned func evaluates, persists and navigates; it is nil if the call was
// already ending. Close waits for a begun end call instead of discarding it.
func (s *Session) BeginEndCall() func(ctx context.Context) string {
	s.mu.Lock()
	if s.ending {
		s.mu.Unlock()
		return nil
	}
	s.ending = true
	s.interviewing = false
	s.phase = PhaseSaving
	s.cancelResume()
	s.deps.Capture.Stop()
	s.saving.Add(1)
	s.mu.Unlock()

	s.cancel()
	s.notify()

	profile := s.extractor.Profile(s.latest())
	s.deps.Landmarks.Stop()
	s.releaseDevices()

	s.mu.Lock()
	if s.turnOpen {
		answer := strings.TrimSpace(s.deps.Capture.Transcript())
		if answer == "" {
			answer = SkippedAnswer
		}
		s.history = append(s.history, Turn{Question: s.question, Answer: answer})
		s.turnOpen = false
	}
	history := append([]Turn{}, s.history...)
	s.mu.Unlock()

	var once sync.Once
	destination := ""
	return func(ctx context.Context) string {
		once.Do(func() {
			defer s.saving.Done()
			destination = s.finishEndCall(ctx, history, profile)
		})
		return destination
	}
}

func (s *Session) finishEndCall(ctx context.Context, history []Turn, profile *behavior.Profile) string {
	// Nothing was asked, so there is nothing to score; the record stays
	// pending and can be started again.
	destination := PathDashboard
	if len(history) > 0 {
		destination = s.save(ctx, history, profile)
	}

	s.setPhase(PhaseTerminated)
	s.deps.Navigator.Navigate(ctx, destination)

	s.log.Info(module, "Interview ended", map[string]interface{}{
		"session_id":  s.id.String(),
		"turns":       len(history),
		"destination": destination,
	})
	return destination
}

func (s *Session) save(ctx context.Context, history []Turn, profile *behavior.Profile) string {
	transcript := FlattenHistory(history)

	evaluation, err := s.deps.Oracle.Evaluate(ctx, transcript, profile)
	if err != nil || evaluation == nil {
		fields := map[string]interface{}{"session_id": s.id.String()}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.log.Warn(module, "Evaluation failed, saving fallback result", fields)
		evaluation = FallbackEvaluation()
	}

	result := Result{Evaluation: *evaluation, Transcript: transcript, Metrics: profile}
	if err := s.deps.Store.Complete(ctx, s.id, result); err != nil {
		s.log.Error(module, "Failed to save interview result", map[string]interface{}{
			"session_id": s.id.String(),
			"error":      err.Error(),
		})
		return PathDashboard
	}
	return ReportPath(s.id)
}

// askQuestion returns the oracle's question, or false on failure or an empty reply.
func (s *Session) askQuestion(ctx context.Context, prompt string) (string, bool) {
	question, err := s.deps.Oracle.GetQuestion(ctx, prompt)
	if err != nil {
		s.log.Warn(module, "Question request failed", map[string]interface{}{
			"session_id": s.id.String(),
			"error":      err.Error(),
		})
		return "", false
	}
	question = strings.TrimSpace(question)
	if question == "" {
		s.log.Warn(module, "Question request returned no text", map[string]interface{}{"session_id": s.id.String()})
		return "", false
	}
	return question, true
}

// beginSpeaking publishes the new question and marks speech in flight. It
// reports false when the call ended while the question was requested.
func (s *Session) beginSpeaking(question string) bool {
	s.mu.Lock()
	s.thinking = false
	if !s.interviewing {
		s.mu.Unlock()
		s.notify()
		return false
	}
	s.question = question
	s.turnOpen = true
	s.speaking = true
	s.phase = PhaseSpeaking
	s.mu.Unlock()
	s.notify()
	return true
}

// speak plays the question with capture stopped and schedules the resume.
func (s *Session) speak(ctx context.Context, text string) {
	s.mu.Lock()
	s.deps.Capture.Stop()
	s.mu.Unlock()

	s.deps.Speaker.Speak(ctx, text)

	s.mu.Lock()
	s.speaking = false
	if s.interviewing {
		s.phase = PhaseListening
		s.cancelResume()
		s.resume = s.opts.Scheduler.AfterFunc(s.opts.ResumeDelay, s.resumeListening)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) resumeListening() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resume = nil
	if s.interviewing && !s.muted && !s.speaking && !s.thinking {
		s.deps.Capture.Start()
	}
}

func (s *Session) acquireDevices(ctx context.Context) {
	release, err := s.deps.Devices.Acquire(ctx, true)
	if err != nil {
		s.log.Warn(module, "Camera unavailable, continuing with video off", map[string]interface{}{
			"session_id": s.id.String(),
			"error":      err.Error(),
		})
		s.mu.Lock()
		s.videoEnabled = false
		s.cameraFailed = true
		s.mu.Unlock()
		s.notify()

		release, err = s.deps.Devices.Acquire(ctx, false)
		if err != nil {
			s.log.Warn(module, "Microphone unavailable", map[string]interface{}{
				"session_id": s.id.String(),
				"error":      err.Error(),
			})
			return
		}
	}

	s.mu.Lock()
	ending := s.ending
	s.mu.Unlock()
	if ending {
		release()
		return
	}
	s.swapRelease(release)
}

// fail is the unrecoverable setup exit.
func (s *Session) fail(ctx context.Context, err error) {
	s.log.Error(module, "Interview setup failed", map[string]interface{}{
		"session_id": s.id.String(),
		"error":      err.Error(),
	})

	s.mu.Lock()
	s.ending = true
	s.interviewing = false
	s.phase = PhaseError
	s.deps.Capture.Stop()
	s.mu.Unlock()

	s.cancel()
	s.deps.Landmarks.Stop()
	s.releaseDevices()
	s.notify()
	s.deps.Navigator.Navigate(context.WithoutCancel(ctx), PathDashboard)
}

// abort handles a cancelled Run. An end call in progress owns the cleanup.
func (s *Session) abort(err error) error {
	s.mu.Lock()
	ending := s.ending
	s.mu.Unlock()

	if !ending {
		s.Close()
	}
	return err
}
