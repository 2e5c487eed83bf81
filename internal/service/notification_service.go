package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-interview-be/internal/model"
	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/internal/pkg/mailer"
	"ai-interview-be/internal/repository/unitofwork"
	"ai-interview-be/pkg/events"
	"ai-interview-be/pkg/interview/session"
	pktNats "ai-interview-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const notificationModule = "NotificationService"

// NotificationDelivery pushes realtime updates, typically the websocket hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
}

// EventSubscriber is satisfied by the NATS subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

type NotificationService struct {
	uowFactory unitofwork.RepositoryFactory
	subscriber EventSubscriber
	delivery   NotificationDelivery
	mailer     mailer.IEmailService
	clientURL  string
	logger     logger.ILogger
}

func NewNotificationService(
	uowFactory unitofwork.RepositoryFactory,
	sub EventSubscriber,
	delivery NotificationDelivery,
	mail mailer.IEmailService,
	clientURL string,
	log logger.ILogger,
) *NotificationService {
	return &NotificationService{
		uowFactory: uowFactory,
		subscriber: sub,
		delivery:   delivery,
		mailer:     mail,
		clientURL:  strings.TrimRight(clientURL, "/"),
		logger:     log,
	}
}

// Start attaches the durable consumers. Without a subscriber it only serves reads.
func (s *NotificationService) Start(ctx context.Context) {
	if s.subscriber == nil {
		s.logger.Warn(notificationModule, "No event subscriber, report notifications disabled", nil)
		return
	}

	handlers := map[string]pktNats.EventHandler{
		events.InterviewCompleted: s.handleInterviewCompleted,
		events.CVAnalyzed:         s.handleCVAnalyzed,
	}
	for eventType, handler := range handlers {
		durable := "notif-" + strings.ToLower(strings.ReplaceAll(eventType, "_", "-"))
		if err := s.subscriber.Subscribe(ctx, eventType, durable, handler); err != nil {
			s.logger.Error(notificationModule, "Failed to subscribe", map[string]interface{}{
				"event": eventType,
				"error": err.Error(),
			})
		}
	}
}

func (s *NotificationService) handleInterviewCompleted(ctx context.Context, event events.BaseEvent) error {
	userID, err := uuid.Parse(event.String("user_id"))
	if err != nil {
		s.logger.Warn(notificationModule, "Completion event without user", map[string]interface{}{"type": event.EventType()})
		return nil
	}
	interviewID, err := uuid.Parse(event.String("interview_id"))
	if err != nil {
		s.logger.Warn(notificationModule, "Completion event without interview", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	score := event.Int("score")
	reportURL := s.clientURL + session.ReportPath(interviewID)
	notif := s.buildNotification(userID, interviewID, event.EventType(),
		"Interview report ready",
		fmt.Sprintf("Your interview scored %d/100. Open the report to see detailed feedback.", score),
		map[string]interface{}{"score": score, "action_url": session.ReportPath(interviewID)},
	)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.NotificationRepository().CreateNotification(ctx, &notif); err != nil {
		return err
	}

	if s.delivery != nil {
		s.delivery.Send(userID, notif)
	}

	if email := event.String("email"); email != "" && s.mailer != nil {
		if err := s.mailer.SendReportReady(email, score, reportURL); err != nil {
			s.logger.Warn(notificationModule, "Report email failed", map[string]interface{}{
				"interview_id": interviewID,
				"error":        err.Error(),
			})
		}
	}

	s.logger.Info(notificationModule, "Report notification delivered", map[string]interface{}{
		"interview_id": interviewID,
		"user_id":      userID,
	})
	return nil
}

// handleCVAnalyzed only pushes; the inbox keeps report notifications.
func (s *NotificationService) handleCVAnalyzed(_ context.Context, event events.BaseEvent) error {
	userID, err := uuid.Parse(event.String("user_id"))
	if err != nil || s.delivery == nil {
		return nil
	}
	interviewID, _ := uuid.Parse(event.String("interview_id"))

	s.delivery.Send(userID, s.buildNotification(userID, interviewID, event.EventType(),
		"CV analyzed",
		"Your CV was analyzed. Questions will reference your background.",
		nil,
	))
	return nil
}

func (s *NotificationService) buildNotification(userID, interviewID uuid.UUID, typeCode, title, message string, meta map[string]interface{}) model.Notification {
	var metadata datatypes.JSON
	if meta != nil {
		metadata, _ = json.Marshal(meta)
	}

	var entityID *uuid.UUID
	if interviewID != uuid.Nil {
		entityID = &interviewID
	}

	return model.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		TypeCode:   typeCode,
		EntityType: "interview",
		EntityID:   entityID,
		Title:      title,
		Message:    message,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	return s.uowFactory.NewUnitOfWork(ctx).NotificationRepository().GetNotificationsByUserID(ctx, userID, limit, offset)
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.uowFactory.NewUnitOfWork(ctx).NotificationRepository().GetUnreadCount(ctx, userID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.uowFactory.NewUnitOfWork(ctx).NotificationRepository().MarkAsRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.uowFactory.NewUnitOfWork(ctx).NotificationRepository().MarkAllAsRead(ctx, userID)
}
