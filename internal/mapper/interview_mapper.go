package mapper

import (
	"encoding/json"
	"time"

	"ai-interview-be/internal/entity"
	"ai-interview-be/internal/model"
	"ai-interview-be/pkg/interview/behavior"

	"gorm.io/datatypes"
)

type InterviewMapper struct{}

func NewInterviewMapper() *InterviewMapper {
	return &InterviewMapper{}
}

type insightJSON struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (m *InterviewMapper) ToEntity(i *model.Interview) *entity.Interview {
	if i == nil {
		return nil
	}

	var updatedAt *time.Time
	if !i.UpdatedAt.IsZero() {
		t := i.UpdatedAt
		updatedAt = &t
	}

	var metrics *behavior.Profile
	if len(i.Metrics) > 0 && string(i.Metrics) != "null" {
		var p behavior.Profile
		if err := json.Unmarshal(i.Metrics, &p); err == nil {
			metrics = &p
		}
	}

	return &entity.Interview{
		Id:              i.Id,
		UserId:          i.UserId,
		Email:           i.Email,
		Type:            i.Type,
		Difficulty:      i.Difficulty,
		CVFileName:      i.CVFileName,
		CVText:          i.CVText,
		CVSummary:       i.CVSummary,
		Status:          i.Status,
		Score:           i.Score,
		AnswerScore:     i.AnswerScore,
		ClarityScore:    i.ClarityScore,
		ConfidenceScore: i.ConfidenceScore,
		Feedback:        decodeInsights(i.Feedback),
		KeyInsights:     decodeInsights(i.KeyInsights),
		Transcript:      i.Transcript,
		Metrics:         metrics,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

func (m *InterviewMapper) ToModel(i *entity.Interview) *model.Interview {
	if i == nil {
		return nil
	}

	var updatedAt time.Time
	if i.UpdatedAt != nil {
		updatedAt = *i.UpdatedAt
	}

	var metrics datatypes.JSON
	if i.Metrics != nil {
		metrics, _ = json.Marshal(i.Metrics)
	}

	return &model.Interview{
		Id:              i.Id,
		UserId:          i.UserId,
		Email:           i.Email,
		Type:            i.Type,
		Difficulty:      i.Difficulty,
		CVFileName:      i.CVFileName,
		CVText:          i.CVText,
		CVSummary:       i.CVSummary,
		Status:          i.Status,
		Score:           i.Score,
		AnswerScore:     i.AnswerScore,
		ClarityScore:    i.ClarityScore,
		ConfidenceScore: i.ConfidenceScore,
		Feedback:        encodeInsights(i.Feedback),
		KeyInsights:     encodeInsights(i.KeyInsights),
		Transcript:      i.Transcript,
		Metrics:         metrics,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

func (m *InterviewMapper) ToEntities(interviews []*model.Interview) []*entity.Interview {
	entities := make([]*entity.Interview, len(interviews))
	for i, n := range interviews {
		entities[i] = m.ToEntity(n)
	}
	return entities
}

func encodeInsights(insights []entity.Insight) datatypes.JSON {
	if insights == nil {
		return nil
	}
	out := make([]insightJSON, len(insights))
	for i, in := range insights {
		out[i] = insightJSON{Type: in.Type, Text: in.Text}
	}
	raw, _ := json.Marshal(out)
	return raw
}

func decodeInsights(raw datatypes.JSON) []entity.Insight {
	if len(raw) == 0 {
		return nil
	}
	var in []insightJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil
	}
	out := make([]entity.Insight, len(in))
	for i, v := range in {
		out[i] = entity.Insight{Type: v.Type, Text: v.Text}
	}
	return out
}
