package landmark

import "time"

// Snapshot is one frame of blend-shape scores. It is never mutated after creation.
type Snapshot struct {
	scores     map[string]float64
	DetectedAt time.Time
}

// NewSnapshot copies scores so later changes to the input do not leak in.
func NewSnapshot(scores map[string]float64, at time.Time) *Snapshot {
	copied := make(map[string]float64, len(scores))
	for name, v := range scores {
		copied[name] = v
	}
	return &Snapshot{scores: copied, DetectedAt: at}
}

// Score returns the named blend-shape score, or 0 when absent.
func (s *Snapshot) Score(name string) float64 {
	if s == nil {
		return 0
	}
	return s.scores[name]
}

// Scores returns a copy of all scores.
func (s *Snapshot) Scores() map[string]float64 {
	out := make(map[string]float64, len(s.scores))
	for name, v := range s.scores {
		out[name] = v
	}
	return out
}
