package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/pkg/interview/behavior"
	"ai-interview-be/pkg/interview/session"
	"ai-interview-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const oracleModule = "OracleService"

var (
	ErrMalformedEvaluation = errors.New("evaluation response is not valid JSON")
	ErrEmptyQuestion       = errors.New("model returned an empty question")
)

// maxCVPromptChars bounds the CV text sent for summarization.
const maxCVPromptChars = 12000

const questionPrompt = `You are a professional interviewer. Based on the context: %s, ask one tough behavioral interview question. Keep it concise.
Reply with the question only, without any preamble, numbering or quotes.`

const evaluationPrompt = `You are an expert interview coach. Evaluate the interview transcript below.
"AI" lines are the interviewer, "You" lines are the candidate.

Transcript:
%s

Non-verbal signals observed at the end of the call:
%s

Respond with a single JSON object and nothing else, using exactly this shape:
{"score": 0-100, "answerScore": 0-100, "clarityScore": 0-100, "confidenceScore": 0-100,
 "feedback": [{"type": "positive|improvement", "text": "..."}],
 "keyInsights": [{"type": "strength|weakness", "text": "..."}]}`

const summaryPrompt = `Summarize the candidate CV below in at most five sentences for an interviewer.
Mention the most recent role, years of experience, core technologies and one notable achievement.
Reply with plain text only.

CV:
%s`

type IOracleService interface {
	GetQuestion(ctx context.Context, prompt string) (string, error)
	Evaluate(ctx context.Context, transcript string, metrics *behavior.Profile) (*session.Evaluation, error)
	Summarize(ctx context.Context, cvText string) (string, error)
}

type oracleService struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewOracleService(provider llm.LLMProvider, log logger.ILogger) IOracleService {
	return &oracleService{llm: provider, logger: log}
}

var tracer = otel.Tracer("ai-interview-be/oracle")

func (s *oracleService) GetQuestion(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Oracle.GetQuestion")
	defer span.End()

	out, err := s.llm.Generate(ctx, fmt.Sprintf(questionPrompt, prompt), llm.WithTemperature(0.8), llm.WithMaxTokens(256))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return "", fmt.Errorf("get question: %w", err)
	}

	question := cleanQuestion(out)
	if question == "" {
		span.SetStatus(codes.Error, "empty question")
		return "", ErrEmptyQuestion
	}
	span.SetAttributes(attribute.Int("question.length", len(question)))
	return question, nil
}

func (s *oracleService) Evaluate(ctx context.Context, transcript string, metrics *behavior.Profile) (*session.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "Oracle.Evaluate")
	defer span.End()

	out, err := s.llm.Generate(ctx,
		fmt.Sprintf(evaluationPrompt, transcript, describeMetrics(metrics)),
		llm.WithJSON(), llm.WithTemperature(0.2),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	eval, err := ParseEvaluation(out)
	if err != nil {
		s.logger.Warn(oracleModule, "Unparseable evaluation", map[string]interface{}{
			"error":  err.Error(),
			"length": len(out),
		})
		span.SetStatus(codes.Error, "malformed evaluation")
		return nil, err
	}
	span.SetAttributes(attribute.Int("evaluation.score", eval.Score))
	return eval, nil
}

func (s *oracleService) Summarize(ctx context.Context, cvText string) (string, error) {
	ctx, span := tracer.Start(ctx, "Oracle.Summarize")
	defer span.End()

	cvText = truncateUTF8(cvText, maxCVPromptChars)
	out, err := s.llm.Generate(ctx, fmt.Sprintf(summaryPrompt, cvText), llm.WithTemperature(0.3))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("summarize cv: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ParseEvaluation reads the model's JSON, tolerating markdown fences and
// surrounding prose. Scores are clamped to 0-100.
func ParseEvaluation(raw string) (*session.Evaluation, error) {
	body := stripFences(raw)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, ErrMalformedEvaluation
	}

	var eval session.Evaluation
	if err := json.Unmarshal([]byte(body[start:end+1]), &eval); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvaluation, err)
	}

	eval.Score = clampScore(eval.Score)
	eval.AnswerScore = clampScore(eval.AnswerScore)
	eval.ClarityScore = clampScore(eval.ClarityScore)
	eval.ConfidenceScore = clampScore(eval.ConfidenceScore)
	if eval.Feedback == nil {
		eval.Feedback = []session.Insight{}
	}
	if eval.KeyInsights == nil {
		eval.KeyInsights = []session.Insight{}
	}
	return &eval, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func cleanQuestion(s string) string {
	s = strings.TrimSpace(stripFences(s))
	for _, prefix := range []string{"Question:", "**Question:**", "Interviewer:"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	s = strings.Trim(s, "\"'“”")
	return strings.TrimSpace(s)
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func describeMetrics(p *behavior.Profile) string {
	if p == nil {
		return "No face was detected."
	}
	return fmt.Sprintf("expression %s, status %s, confidence %.2f, nervousness %.2f, eye contact %.2f",
		p.Expression, p.Status, p.Confidence, p.Nervousness, p.EyeContact)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
