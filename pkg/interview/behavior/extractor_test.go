package behavior

import (
	"testing"
	"time"

	"ai-interview-be/pkg/interview/landmark"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(scores map[string]float64) *landmark.Snapshot {
	return landmark.NewSnapshot(scores, time.Unix(0, 0))
}

func both(left, right string, v float64) map[string]float64 {
	return map[string]float64{left: v, right: v}
}

func merge(maps ...map[string]float64) map[string]float64 {
	out := map[string]float64{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func TestExpression(t *testing.T) {
	e := New(DefaultThresholds())

	tests := []struct {
		name   string
		scores map[string]float64
		want   string
	}{
		{
			name:   "all zero is neutral",
			scores: map[string]float64{},
			want:   ExpressionNeutral,
		},
		{
			name:   "smile above threshold",
			scores: both(MouthSmileLeft, MouthSmileRight, 0.6),
			want:   ExpressionSmiling,
		},
		{
			name:   "jaw open wins when smile stays under its threshold",
			scores: merge(both(MouthSmileLeft, MouthSmileRight, 0.3), map[string]float64{JawOpen: 0.5}),
			want:   ExpressionSpeaking,
		},
		{
			name:   "jaw open does not override a stronger smile",
			scores: merge(both(MouthSmileLeft, MouthSmileRight, 0.6), map[string]float64{JawOpen: 0.5}),
			want:   ExpressionSmiling,
		},
		{
			name:   "jaw open overrides a weaker smile",
			scores: merge(both(MouthSmileLeft, MouthSmileRight, 0.5), map[string]float64{JawOpen: 0.7}),
			want:   ExpressionSpeaking,
		},
		{
			name:   "brow down is focus",
			scores: both(BrowDownLeft, BrowDownRight, 0.5),
			want:   ExpressionFocused,
		},
		{
			name:   "pucker is thinking",
			scores: map[string]float64{MouthPucker: 0.4},
			want:   ExpressionThinking,
		},
		{
			name:   "lower lip roll is thinking",
			scores: map[string]float64{MouthRollLower: 0.36},
			want:   ExpressionThinking,
		},
		{
			name:   "smile exactly at threshold does not count",
			scores: both(MouthSmileLeft, MouthSmileRight, 0.45),
			want:   ExpressionNeutral,
		},
		{
			name:   "one-sided smile is averaged",
			scores: map[string]float64{MouthSmileLeft: 0.8},
			want:   ExpressionNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expression(snap(tt.scores)))
		})
	}
}

func TestExpressionWithoutDetection(t *testing.T) {
	assert.Equal(t, ExpressionNeutral, New(DefaultThresholds()).Expression(nil))
}

func TestProfile(t *testing.T) {
	e := New(DefaultThresholds())

	tests := []struct {
		name           string
		scores         map[string]float64
		wantStatus     string
		wantConfidence float64
		wantNervous    float64
	}{
		{
			name:           "all zero is engaged",
			scores:         map[string]float64{},
			wantStatus:     StatusEngaged,
			wantConfidence: 1,
			wantNervous:    0,
		},
		{
			name:           "look down at the boundary has no penalty",
			scores:         both(EyeLookDownLeft, EyeLookDownRight, 0.4),
			wantStatus:     StatusEngaged,
			wantConfidence: 1,
		},
		{
			name:           "look down above the boundary is penalised",
			scores:         both(EyeLookDownLeft, EyeLookDownRight, 0.41),
			wantStatus:     StatusEngaged,
			wantConfidence: 0.6,
		},
		{
			name:           "looking down beats distracted",
			scores:         merge(both(EyeLookDownLeft, EyeLookDownRight, 0.6), map[string]float64{EyeLookOutLeft: 0.7, EyeLookInRight: 0.7}),
			wantStatus:     StatusLookingDown,
			wantConfidence: 0.4,
		},
		{
			name:           "side glance is distracted",
			scores:         map[string]float64{EyeLookInLeft: 0.7, EyeLookOutRight: 0.7},
			wantStatus:     StatusDistracted,
			wantConfidence: 0.8,
		},
		{
			name:           "nervousness is capped at one",
			scores:         merge(both(MouthPressLeft, MouthPressRight, 0.4), both(MouthFrownLeft, MouthFrownRight, 0.5), map[string]float64{MouthRollLower: 0.4}),
			wantStatus:     StatusNervous,
			wantConfidence: 1,
			wantNervous:    1,
		},
		{
			name:           "lip press alone is not nervous",
			scores:         both(MouthPressLeft, MouthPressRight, 0.4),
			wantStatus:     StatusEngaged,
			wantConfidence: 1,
			wantNervous:    0.4,
		},
		{
			name:           "looking up is recalling",
			scores:         both(EyeLookUpLeft, EyeLookUpRight, 0.6),
			wantStatus:     StatusRecalling,
			wantConfidence: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := e.Profile(snap(tt.scores))
			require.NotNil(t, p)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.InDelta(t, tt.wantConfidence, p.Confidence, 1e-9)
			assert.InDelta(t, tt.wantNervous, p.Nervousness, 1e-9)
		})
	}
}

func TestProfileEyeContact(t *testing.T) {
	p := New(DefaultThresholds()).Profile(snap(map[string]float64{EyeLookOutLeft: 0.7, EyeLookInRight: 0.7}))
	require.NotNil(t, p)
	assert.InDelta(t, 0.3, p.EyeContact, 1e-9)
	assert.Equal(t, ExpressionNeutral, p.Expression)
}

func TestProfileWithoutDetection(t *testing.T) {
	assert.Nil(t, New(DefaultThresholds()).Profile(nil))
}

func TestCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.Smile = 0.2

	e := New(th)
	assert.Equal(t, ExpressionSmiling, e.Expression(snap(both(MouthSmileLeft, MouthSmileRight, 0.3))))
}
