package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ai-interview-be/internal/dto"
	"ai-interview-be/internal/entity"
	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/internal/repository/specification"
	"ai-interview-be/internal/repository/unitofwork"
	"ai-interview-be/pkg/document"
	"ai-interview-be/pkg/events"
	"ai-interview-be/pkg/interview/session"

	"github.com/google/uuid"
)

const interviewModule = "InterviewService"

var (
	ErrInterviewNotFound = errors.New("interview not found")
	ErrUnreadableCV      = errors.New("cv must be a PDF or plain text file")
)

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IInterviewService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateInterviewRequest) (*dto.CreateInterviewResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowInterviewResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllInterviewResponse, error)
	Stats(ctx context.Context, userId uuid.UUID) (*dto.InterviewStatsResponse, error)
	// Get returns nil without error when the interview does not exist.
	Get(ctx context.Context, id uuid.UUID) (*entity.Interview, error)
	Complete(ctx context.Context, id uuid.UUID, result session.Result) error
}

type interviewService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	events           EventPublisher
	logger           logger.ILogger
}

// NewInterviewService wires the record store. publisherService and
// eventPublisher may be nil; CV analysis and completion events are then skipped.
func NewInterviewService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IInterviewService {
	return &interviewService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		events:           eventPublisher,
		logger:           log,
	}
}

func (c *interviewService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateInterviewRequest) (*dto.CreateInterviewResponse, error) {
	interview := entity.Interview{
		Id:         uuid.New(),
		UserId:     userId,
		Email:      req.Email,
		Type:       req.Type,
		Difficulty: req.Difficulty,
		Status:     entity.InterviewStatusPending,
		CreatedAt:  time.Now(),
	}

	if len(req.CVData) > 0 {
		text, err := document.ExtractText(req.CVData)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableCV, err)
		}
		interview.CVFileName = req.CVFileName
		interview.CVText = text
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.InterviewRepository().Create(ctx, &interview); err != nil {
		return nil, err
	}

	if interview.CVText != "" && c.publisherService != nil {
		msg := dto.SummarizeCVMessage{InterviewId: interview.Id}
		if err := c.publisherService.SendMessage(ctx, msg); err != nil {
			c.logger.Warn(interviewModule, "Failed to queue CV analysis", map[string]interface{}{
				"interview_id": interview.Id,
				"error":        err.Error(),
			})
		}
	}

	return &dto.CreateInterviewResponse{Id: interview.Id}, nil
}

func (c *interviewService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowInterviewResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	interview, err := uow.InterviewRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, nil
	}

	return &dto.ShowInterviewResponse{
		Id:              interview.Id,
		Type:            interview.Type,
		Difficulty:      interview.Difficulty,
		Status:          interview.Status,
		CVFileName:      interview.CVFileName,
		CVSummary:       interview.CVSummary,
		Score:           interview.Score,
		AnswerScore:     interview.AnswerScore,
		ClarityScore:    interview.ClarityScore,
		ConfidenceScore: interview.ConfidenceScore,
		Feedback:        toInsightResponses(interview.Feedback),
		KeyInsights:     toInsightResponses(interview.KeyInsights),
		Transcript:      interview.Transcript,
		Metrics:         interview.Metrics,
		CreatedAt:       interview.CreatedAt,
		UpdatedAt:       interview.UpdatedAt,
	}, nil
}

func (c *interviewService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllInterviewResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	interviews, err := uow.InterviewRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.NewestFirst(),
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.GetAllInterviewResponse, 0, len(interviews))
	for _, interview := range interviews {
		result = append(result, &dto.GetAllInterviewResponse{
			Id:         interview.Id,
			Type:       interview.Type,
			Difficulty: interview.Difficulty,
			Status:     interview.Status,
			Score:      interview.Score,
			CreatedAt:  interview.CreatedAt,
			UpdatedAt:  interview.UpdatedAt,
		})
	}
	return result, nil
}

func (c *interviewService) Stats(ctx context.Context, userId uuid.UUID) (*dto.InterviewStatsResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	stats, err := uow.InterviewRepository().ScoreStats(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}

	return &dto.InterviewStatsResponse{
		Total:        stats.Total,
		Completed:    stats.Completed,
		AverageScore: int(math.Round(stats.AverageScore)),
		BestScore:    stats.BestScore,
	}, nil
}

func (c *interviewService) Get(ctx context.Context, id uuid.UUID) (*entity.Interview, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	return uow.InterviewRepository().FindOne(ctx, specification.ByID{ID: id})
}

func (c *interviewService) Complete(ctx context.Context, id uuid.UUID, result session.Result) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	interview, err := uow.InterviewRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if interview == nil {
		return ErrInterviewNotFound
	}

	now := time.Now()
	score := result.Score
	answer := result.AnswerScore
	clarity := result.ClarityScore
	confidence := result.ConfidenceScore

	interview.Status = entity.InterviewStatusCompleted
	interview.Score = &score
	interview.AnswerScore = &answer
	interview.ClarityScore = &clarity
	interview.ConfidenceScore = &confidence
	interview.Feedback = toEntityInsights(result.Feedback)
	interview.KeyInsights = toEntityInsights(result.KeyInsights)
	interview.Transcript = result.Transcript
	interview.Metrics = result.Metrics
	interview.UpdatedAt = &now

	if err := uow.InterviewRepository().SaveResult(ctx, interview); err != nil {
		return err
	}

	c.logger.Info(interviewModule, "Interview completed", map[string]interface{}{
		"interview_id": id,
		"score":        score,
	})

	if c.events != nil {
		evt := events.NewInterviewCompleted(interview.Id, interview.UserId, interview.Email, score)
		if err := c.events.Publish(ctx, evt); err != nil {
			c.logger.Warn(interviewModule, "Failed to publish completion event", map[string]interface{}{
				"interview_id": id,
				"error":        err.Error(),
			})
		}
	}
	return nil
}

func toInsightResponses(in []entity.Insight) []dto.InsightResponse {
	out := make([]dto.InsightResponse, 0, len(in))
	for _, i := range in {
		out = append(out, dto.InsightResponse{Type: i.Type, Text: i.Text})
	}
	return out
}

func toEntityInsights(in []session.Insight) []entity.Insight {
	out := make([]entity.Insight, 0, len(in))
	for _, i := range in {
		if strings.TrimSpace(i.Text) == "" {
			continue
		}
		out = append(out, entity.Insight{Type: i.Type, Text: i.Text})
	}
	return out
}

// sessionStore adapts the interview service to the live session's storage port.
type sessionStore struct {
	interviews IInterviewService
}

func NewSessionStore(interviews IInterviewService) session.Store {
	return &sessionStore{interviews: interviews}
}

func (s *sessionStore) Get(ctx context.Context, id uuid.UUID) (*session.Record, error) {
	interview, err := s.interviews.Get(ctx, id)
	if err != nil || interview == nil {
		return nil, err
	}
	return &session.Record{
		ID:         interview.Id,
		Type:       interview.Type,
		Difficulty: interview.Difficulty,
		CVSummary:  interview.CVSummary,
	}, nil
}

func (s *sessionStore) Complete(ctx context.Context, id uuid.UUID, result session.Result) error {
	return s.interviews.Complete(ctx, id, result)
}
