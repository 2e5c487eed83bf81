package entity

import (
	"time"

	"ai-interview-be/pkg/interview/behavior"

	"github.com/google/uuid"
)

const (
	InterviewStatusPending   = "Pending"
	InterviewStatusCompleted = "Completed"
)

type Insight struct {
	Type string
	Text string
}

type Interview struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	Email           string
	Type            string
	Difficulty      string
	CVFileName      string
	CVText          string
	CVSummary       string
	Status          string
	Score           *int
	AnswerScore     *int
	ClarityScore    *int
	ConfidenceScore *int
	Feedback        []Insight
	KeyInsights     []Insight
	Transcript      string
	Metrics         *behavior.Profile
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

func (i *Interview) IsCompleted() bool {
	return i.Status == InterviewStatusCompleted
}

// InterviewStats aggregates completed interviews of one user.
type InterviewStats struct {
	Total        int64
	Completed    int64
	AverageScore float64
	BestScore    int
}
