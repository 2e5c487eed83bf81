package service

import (
	"context"
	"encoding/json"
	"strings"

	"ai-interview-be/internal/dto"
	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/internal/repository/specification"
	"ai-interview-be/internal/repository/unitofwork"
	"ai-interview-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "CVConsumer"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	oracle     IOracleService
	events     EventPublisher
	logger     logger.ILogger
}

// NewConsumerService builds the CV analysis worker. events may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	oracle IOracleService,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		oracle:     oracle,
		events:     eventPublisher,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.SummarizeCVMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	interview, err := uow.InterviewRepository().FindOne(ctx, specification.ByID{ID: payload.InterviewId})
	if err != nil {
		cs.logger.Error(consumerModule, "Failed to load interview", map[string]interface{}{
			"interview_id": payload.InterviewId,
			"error":        err.Error(),
		})
		msg.Nack()
		return
	}
	if interview == nil || strings.TrimSpace(interview.CVText) == "" {
		msg.Ack()
		return
	}

	summary, err := cs.oracle.Summarize(ctx, interview.CVText)
	if err != nil {
		// The interview proceeds on the generic context.
		cs.logger.Warn(consumerModule, "CV summary failed", map[string]interface{}{
			"interview_id": payload.InterviewId,
			"error":        err.Error(),
		})
		msg.Ack()
		return
	}

	if err := uow.InterviewRepository().SetCVSummary(ctx, interview.Id, summary); err != nil {
		cs.logger.Error(consumerModule, "Failed to store CV summary", map[string]interface{}{
			"interview_id": payload.InterviewId,
			"error":        err.Error(),
		})
		msg.Nack()
		return
	}

	if cs.events != nil {
		if err := cs.events.Publish(ctx, events.NewCVAnalyzed(interview.Id, interview.UserId)); err != nil {
			cs.logger.Warn(consumerModule, "Failed to publish CV analyzed event", map[string]interface{}{"error": err.Error()})
		}
	}

	cs.logger.Info(consumerModule, "CV summarized", map[string]interface{}{
		"interview_id": payload.InterviewId,
		"length":       len(summary),
	})
	msg.Ack()
}
