package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	InterviewCompleted = "INTERVIEW_COMPLETED"
	CVAnalyzed         = "INTERVIEW_CV_ANALYZED"
)

// Subject is the NATS subject an event type is published on.
func Subject(eventType string) string {
	return "events." + eventType
}

// Event defines the contract for all system events.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// String reads a string field from the payload.
func (e BaseEvent) String(key string) string {
	if v, ok := e.Data[key].(string); ok {
		return v
	}
	return ""
}

// Int reads a numeric field from the payload. JSON numbers decode as float64.
func (e BaseEvent) Int(key string) int {
	switch v := e.Data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func NewInterviewCompleted(interviewID, userID uuid.UUID, email string, score int) BaseEvent {
	return BaseEvent{
		Type: InterviewCompleted,
		Data: map[string]interface{}{
			"interview_id": interviewID.String(),
			"user_id":      userID.String(),
			"email":        email,
			"score":        score,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func NewCVAnalyzed(interviewID, userID uuid.UUID) BaseEvent {
	return BaseEvent{
		Type: CVAnalyzed,
		Data: map[string]interface{}{
			"interview_id": interviewID.String(),
			"user_id":      userID.String(),
		},
		OccurredAt: time.Now().UTC(),
	}
}

type envelope struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// Encode serializes an event with its type and timestamp so consumers can rebuild it.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(envelope{
		Type:       e.EventType(),
		OccurredAt: e.Timestamp(),
		Data:       e.Payload(),
	})
}

func Decode(data []byte) (BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return BaseEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if env.Type == "" {
		return BaseEvent{}, fmt.Errorf("decode event: missing type")
	}
	return BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}, nil
}
