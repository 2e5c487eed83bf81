package dto

import (
	"time"

	"ai-interview-be/pkg/interview/behavior"

	"github.com/google/uuid"
)

type CreateInterviewRequest struct {
	Type       string `json:"type" form:"type" validate:"required,oneof=general phone coding"`
	Difficulty string `json:"difficulty" form:"difficulty" validate:"required,oneof=easy medium hard"`
	Email      string `json:"-" form:"-"`
	CVFileName string `json:"-" form:"-"`
	CVData     []byte `json:"-" form:"-"`
}

type CreateInterviewResponse struct {
	Id uuid.UUID `json:"id"`
}

type InsightResponse struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ShowInterviewResponse struct {
	Id              uuid.UUID         `json:"id"`
	Type            string            `json:"type"`
	Difficulty      string            `json:"difficulty"`
	Status          string            `json:"status"`
	CVFileName      string            `json:"cv_file_name,omitempty"`
	CVSummary       string            `json:"cv_summary,omitempty"`
	Score           *int              `json:"score"`
	AnswerScore     *int              `json:"answer_score"`
	ClarityScore    *int              `json:"clarity_score"`
	ConfidenceScore *int              `json:"confidence_score"`
	Feedback        []InsightResponse `json:"feedback"`
	KeyInsights     []InsightResponse `json:"key_insights"`
	Transcript      string            `json:"transcript"`
	Metrics         *behavior.Profile `json:"metrics,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       *time.Time        `json:"updated_at"`
}

type GetAllInterviewResponse struct {
	Id         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Difficulty string     `json:"difficulty"`
	Status     string     `json:"status"`
	Score      *int       `json:"score"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type InterviewStatsResponse struct {
	Total        int64 `json:"total"`
	Completed    int64 `json:"completed"`
	AverageScore int   `json:"average_score"`
	BestScore    int   `json:"best_score"`
}

// SummarizeCVMessage is the payload of the CV analysis job.
type SummarizeCVMessage struct {
	InterviewId uuid.UUID `json:"interview_id"`
}
