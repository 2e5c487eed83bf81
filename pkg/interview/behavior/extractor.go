// Package behavior derives expression and engagement signals from a landmark snapshot.
// Everything here is pure: no state, no I/O.
package behavior

import (
	"math"

	"ai-interview-be/pkg/interview/landmark"
)

// Blend-shape names as reported by the MediaPipe face landmarker.
const (
	MouthSmileLeft   = "mouthSmileLeft"
	MouthSmileRight  = "mouthSmileRight"
	BrowDownLeft     = "browDownLeft"
	BrowDownRight    = "browDownRight"
	JawOpen          = "jawOpen"
	MouthPucker      = "mouthPucker"
	MouthRollLower   = "mouthRollLower"
	MouthRollUpper   = "mouthRollUpper"
	ChinRaise        = "mouthShrugLower"
	EyeLookDownLeft  = "eyeLookDownLeft"
	EyeLookDownRight = "eyeLookDownRight"
	EyeLookUpLeft    = "eyeLookUpLeft"
	EyeLookUpRight   = "eyeLookUpRight"
	EyeLookInLeft    = "eyeLookInLeft"
	EyeLookInRight   = "eyeLookInRight"
	EyeLookOutLeft   = "eyeLookOutLeft"
	EyeLookOutRight  = "eyeLookOutRight"
	MouthPressLeft   = "mouthPressLeft"
	MouthPressRight  = "mouthPressRight"
	MouthFrownLeft   = "mouthFrownLeft"
	MouthFrownRight  = "mouthFrownRight"
)

const (
	ExpressionNeutral  = "Neutral"
	ExpressionSmiling  = "Smiling"
	ExpressionFocused  = "Focused"
	ExpressionThinking = "Thinking"
	ExpressionSpeaking = "Speaking"
)

const (
	StatusLookingDown = "Looking Down"
	StatusDistracted  = "Distracted"
	StatusNervous     = "Tense/Nervous"
	StatusRecalling   = "Thinking/Recalling"
	StatusEngaged     = "Confident/Engaged"
)

// Thresholds holds the heuristic constants. All comparisons are strict (>).
type Thresholds struct {
	Smile    float64
	Focus    float64
	Thinking float64
	JawOpen  float64

	LookDown          float64
	LookDownPenalty   float64
	SideGlance        float64
	SideGlancePenalty float64

	LipPress       float64
	LipPressWeight float64
	LipRoll        float64
	LipRollWeight  float64
	Frown          float64
	FrownWeight    float64

	StatusLookDown   float64
	StatusSideGlance float64
	StatusNervous    float64
	StatusLookUp     float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Smile:    0.45,
		Focus:    0.40,
		Thinking: 0.35,
		JawOpen:  0.18,

		LookDown:          0.4,
		LookDownPenalty:   0.4,
		SideGlance:        0.5,
		SideGlancePenalty: 0.2,

		LipPress:       0.3,
		LipPressWeight: 0.4,
		LipRoll:        0.3,
		LipRollWeight:  0.5,
		Frown:          0.4,
		FrownWeight:    0.3,

		StatusLookDown:   0.5,
		StatusSideGlance: 0.6,
		StatusNervous:    0.5,
		StatusLookUp:     0.5,
	}
}

// Profile is the session-level behavior summary sent with the final evaluation.
type Profile struct {
	Expression  string  `json:"expression"`
	Status      string  `json:"status"`
	Confidence  float64 `json:"confidence"`
	Nervousness float64 `json:"nervousness"`
	EyeContact  float64 `json:"eye_contact"`
	LookDown    float64 `json:"look_down"`
	SideGlance  float64 `json:"side_glance"`
	LookUp      float64 `json:"look_up"`
}

type Extractor struct {
	t Thresholds
}

func New(t Thresholds) *Extractor {
	return &Extractor{t: t}
}

// Expression picks the strongest expression that clears its threshold.
// Candidates are checked smile, focus, thinking, jawOpen; a later candidate
// only wins when it beats the best score so far.
func (e *Extractor) Expression(s *landmark.Snapshot) string {
	if s == nil {
		return ExpressionNeutral
	}

	label := ExpressionNeutral
	best := 0.0

	candidates := []struct {
		label     string
		score     float64
		threshold float64
	}{
		{ExpressionSmiling, avg(s.Score(MouthSmileLeft), s.Score(MouthSmileRight)), e.t.Smile},
		{ExpressionFocused, avg(s.Score(BrowDownLeft), s.Score(BrowDownRight)), e.t.Focus},
		{ExpressionThinking, thinkingScore(s), e.t.Thinking},
		{ExpressionSpeaking, s.Score(JawOpen), e.t.JawOpen},
	}

	for _, c := range candidates {
		if c.score > c.threshold && c.score > best {
			label = c.label
			best = c.score
		}
	}
	return label
}

// Profile computes the behavior summary, or nil without a detection.
func (e *Extractor) Profile(s *landmark.Snapshot) *Profile {
	if s == nil {
		return nil
	}

	lookDown := avg(s.Score(EyeLookDownLeft), s.Score(EyeLookDownRight))
	lookUp := avg(s.Score(EyeLookUpLeft), s.Score(EyeLookUpRight))
	sideGlance := math.Max(
		avg(s.Score(EyeLookOutLeft), s.Score(EyeLookInRight)),
		avg(s.Score(EyeLookInLeft), s.Score(EyeLookOutRight)),
	)

	confidence := 1.0
	if lookDown > e.t.LookDown {
		confidence -= e.t.LookDownPenalty
	}
	if sideGlance > e.t.SideGlance {
		confidence -= e.t.SideGlancePenalty
	}
	confidence = math.Max(0, confidence)

	nervous := 0.0
	if avg(s.Score(MouthPressLeft), s.Score(MouthPressRight)) > e.t.LipPress {
		nervous += e.t.LipPressWeight
	}
	if math.Max(s.Score(MouthRollLower), s.Score(MouthRollUpper)) > e.t.LipRoll {
		nervous += e.t.LipRollWeight
	}
	if avg(s.Score(MouthFrownLeft), s.Score(MouthFrownRight)) > e.t.Frown {
		nervous += e.t.FrownWeight
	}
	nervous = math.Min(1, nervous)

	status := StatusEngaged
	switch {
	case lookDown > e.t.StatusLookDown:
		status = StatusLookingDown
	case sideGlance > e.t.StatusSideGlance:
		status = StatusDistracted
	case nervous > e.t.StatusNervous:
		status = StatusNervous
	case lookUp > e.t.StatusLookUp:
		status = StatusRecalling
	}

	return &Profile{
		Expression:  e.Expression(s),
		Status:      status,
		Confidence:  round2(confidence),
		Nervousness: round2(nervous),
		EyeContact:  round2(clamp01(1 - math.Max(lookDown, math.Max(sideGlance, lookUp)))),
		LookDown:    round2(lookDown),
		SideGlance:  round2(sideGlance),
		LookUp:      round2(lookUp),
	}
}

func thinkingScore(s *landmark.Snapshot) float64 {
	pucker := s.Score(MouthPucker)
	return math.Max(pucker, math.Max(s.Score(MouthRollLower), avg(s.Score(ChinRaise), pucker)))
}

func avg(a, b float64) float64 {
	return (a + b) / 2
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
