package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/pkg/interview/behavior"
	"ai-interview-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	out     string
	err     error
	prompts []string
	opts    llm.Options
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return s.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (s *stubLLM) Generate(_ context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.opts = llm.Apply(llm.Options{}, opts...)
	return s.out, s.err
}

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantScore int
		wantErr   bool
	}{
		{
			name:      "plain json",
			raw:       `{"score":82,"answerScore":84,"clarityScore":88,"confidenceScore":75,"feedback":[{"type":"positive","text":"Good"}],"keyInsights":[]}`,
			wantScore: 82,
		},
		{
			name:      "fenced json",
			raw:       "```json\n{\"score\": 64, \"answerScore\": 60}\n```",
			wantScore: 64,
		},
		{
			name:      "prose around json",
			raw:       "Here is the evaluation: {\"score\": 70} Hope it helps.",
			wantScore: 70,
		},
		{
			name:      "clamped",
			raw:       `{"score":140,"answerScore":-5}`,
			wantScore: 100,
		},
		{name: "no object", raw: "I cannot evaluate this.", wantErr: true},
		{name: "broken object", raw: `{"score": }`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := ParseEvaluation(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedEvaluation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, eval.Score)
			assert.GreaterOrEqual(t, eval.AnswerScore, 0)
			assert.NotNil(t, eval.Feedback)
			assert.NotNil(t, eval.KeyInsights)
		})
	}
}

func TestGetQuestionCleansOutput(t *testing.T) {
	tests := []struct {
		out  string
		want string
	}{
		{out: `"Tell me about a conflict you resolved."`, want: "Tell me about a conflict you resolved."},
		{out: "Question: Why do you want this role?\n", want: "Why do you want this role?"},
		{out: "  How do you prioritize?  ", want: "How do you prioritize?"},
	}

	for _, tt := range tests {
		stub := &stubLLM{out: tt.out}
		q, err := NewOracleService(stub, logger.NewNopLogger()).GetQuestion(context.Background(), "General behavioral interview")
		require.NoError(t, err)
		assert.Equal(t, tt.want, q)
		assert.Contains(t, stub.prompts[0], "Based on the context: General behavioral interview")
	}
}

func TestGetQuestionErrors(t *testing.T) {
	svc := NewOracleService(&stubLLM{out: `""`}, logger.NewNopLogger())
	_, err := svc.GetQuestion(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	boom := errors.New("quota")
	_, err = NewOracleService(&stubLLM{err: boom}, logger.NewNopLogger()).GetQuestion(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestEvaluateRequestsJSON(t *testing.T) {
	stub := &stubLLM{out: `{"score":90}`}
	svc := NewOracleService(stub, logger.NewNopLogger())

	eval, err := svc.Evaluate(context.Background(), "AI: Hi\nYou: Hello", &behavior.Profile{Expression: "Smiling", Status: "Confident/Engaged"})
	require.NoError(t, err)
	assert.Equal(t, 90, eval.Score)
	assert.True(t, stub.opts.JSON)
	assert.Contains(t, stub.prompts[0], "AI: Hi\nYou: Hello")
	assert.Contains(t, stub.prompts[0], "expression Smiling")

	_, err = NewOracleService(&stubLLM{out: "nope"}, logger.NewNopLogger()).Evaluate(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrMalformedEvaluation)
}

func TestSummarizeTruncatesCV(t *testing.T) {
	stub := &stubLLM{out: " Senior Go engineer. \n"}
	long := make([]byte, maxCVPromptChars+500)
	for i := range long {
		long[i] = 'a'
	}

	summary, err := NewOracleService(stub, logger.NewNopLogger()).Summarize(context.Background(), string(long))
	require.NoError(t, err)
	assert.Equal(t, "Senior Go engineer.", summary)
	assert.Less(t, len(stub.prompts[0]), maxCVPromptChars+400)
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "Go", n: 5, want: "Go"},
		{name: "ascii cut", in: "abcdef", n: 3, want: "abc"},
		{name: "cut inside rune", in: "abécd", n: 3, want: "ab"},
		{name: "cut after rune", in: "abécd", n: 4, want: "abé"},
		{name: "cut inside four byte rune", in: "x😀", n: 3, want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateUTF8(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestSummarizeKeepsMultibyteCVValid(t *testing.T) {
	stub := &stubLLM{out: "Ingeniera de software."}
	cv := "a" + strings.Repeat("é", maxCVPromptChars)

	_, err := NewOracleService(stub, logger.NewNopLogger()).Summarize(context.Background(), cv)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(stub.prompts[0]))
}
