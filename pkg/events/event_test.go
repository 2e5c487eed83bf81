package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeepsTypeAndTime(t *testing.T) {
	interviewID, userID := uuid.New(), uuid.New()
	e := NewInterviewCompleted(interviewID, userID, "jane@example.com", 84)

	data, err := Encode(e)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, InterviewCompleted, got.EventType())
	assert.True(t, e.OccurredAt.Equal(got.Timestamp()))
	assert.Equal(t, interviewID.String(), got.String("interview_id"))
	assert.Equal(t, 84, got.Int("score"))
	assert.Equal(t, "", got.String("missing"))
}

func TestDecodeRejectsUntypedPayload(t *testing.T) {
	_, err := Decode([]byte(`{"data":{"a":1}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`nope`))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.INTERVIEW_COMPLETED", Subject(InterviewCompleted))
}
