package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const genericContext = "General behavioral interview for a software engineer role."

func ReportPath(id uuid.UUID) string {
	return "/report/" + id.String()
}

func firstQuestionContext(record *Record) string {
	if record == nil {
		return genericContext
	}

	ctx := fmt.Sprintf("%s interview at %s difficulty for a software engineer role.",
		titleCase(orDefault(record.Type, "general")), orDefault(record.Difficulty, "medium"))
	if record.CVSummary != "" {
		ctx += " Candidate background: " + record.CVSummary
	}
	return ctx
}

func followUpContext(answer, expression string, record *Record) string {
	ctx := fmt.Sprintf("User response: %q. Their expression was %s. Ask a relevant follow-up question or continue the interview.",
		answer, expression)
	if record != nil && record.CVSummary != "" {
		ctx += " Candidate background: " + record.CVSummary
	}
	return ctx
}

// FlattenHistory renders the turns as one transcript document.
func FlattenHistory(history []Turn) string {
	var b strings.Builder
	for i, t := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("AI: ")
		b.WriteString(t.Question)
		b.WriteString("\nYou: ")
		b.WriteString(t.Answer)
	}
	return b.String()
}

// FallbackEvaluation is saved when the oracle cannot produce a usable evaluation.
func FallbackEvaluation() *Evaluation {
	return &Evaluation{
		Score:           50,
		AnswerScore:     50,
		ClarityScore:    50,
		ConfidenceScore: 50,
		Feedback: []Insight{
			{Type: "info", Text: "Automatic evaluation was unavailable for this session. Scores are provisional."},
		},
		KeyInsights: []Insight{},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
