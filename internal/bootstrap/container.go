package bootstrap

import (
	"context"
	"log"

	"ai-interview-be/internal/config"
	"ai-interview-be/internal/controller"
	"ai-interview-be/internal/handler"
	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/internal/pkg/mailer"
	"ai-interview-be/internal/repository/memory"
	"ai-interview-be/internal/repository/unitofwork"
	"ai-interview-be/internal/service"
	"ai-interview-be/internal/websocket"
	"ai-interview-be/pkg/llm/factory"
	pktNats "ai-interview-be/pkg/nats"
	"ai-interview-be/pkg/tts"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	InterviewController controller.IInterviewController
	SessionHandler      *handler.SessionHandler
	NotificationHandler *handler.NotificationHandler

	// Background workers, started by main.
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService
	WebSocketHub        *websocket.Hub

	Sessions *memory.SessionRepository
	Logger   logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	sessionLogger := logger.NewIsolatedLogger(cfg.App.SessionLogPath)
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")

	var closers []func()

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			sysLogger,
		)
	}

	// In-process job queue for CV analysis.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	closers = append(closers, func() { _ = pubSub.Close() })

	llmProvider, err := factory.NewLLMProvider(factory.Settings{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  llmBaseURL(cfg),
		APIKey:   cfg.Keys.GoogleGemini,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	synthesizer := tts.NewGoogleSynthesizer(cfg.Ai.TTSBaseURL, cfg.Keys.GoogleTTS, cfg.Ai.TTSLanguage, cfg.Ai.TTSVoice)

	// NATS. A failed connection leaves the interfaces nil so events are skipped.
	var eventPublisher service.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
		closers = append(closers, natsPub.Close)
	}

	var eventSubscriber service.EventSubscriber
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, wsLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		eventSubscriber = natsSub
		closers = append(closers, natsSub.Close)
	}

	rdb := connectRedis(cfg.App.RedisURL)
	if rdb != nil {
		closers = append(closers, func() { _ = rdb.Close() })
	}

	wsHub := websocket.NewHub(rdb, wsLogger)
	sessions := memory.NewSessionRepository(rdb, cfg.Interview.LeaseTTL)

	oracleService := service.NewOracleService(llmProvider, sysLogger)
	publisherService := service.NewPublisherService(cfg.Keys.CVTopic, pubSub)
	interviewService := service.NewInterviewService(uowFactory, publisherService, eventPublisher, sysLogger)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.CVTopic,
		uowFactory,
		oracleService,
		eventPublisher,
		sysLogger,
	)
	notifService := service.NewNotificationService(uowFactory, eventSubscriber, wsHub, emailService, cfg.App.ClientURL, wsLogger)

	return &Container{
		InterviewController: controller.NewInterviewController(interviewService, cfg.Interview.MaxCVBytes),
		SessionHandler: handler.NewSessionHandler(
			interviewService,
			oracleService,
			synthesizer,
			sessions,
			cfg.Interview,
			sysLogger,
			sessionLogger,
		),
		NotificationHandler: handler.NewNotificationHandler(notifService, wsHub, wsLogger),

		ConsumerService:     consumerService,
		NotificationService: notifService,
		WebSocketHub:        wsHub,

		Sessions: sessions,
		Logger:   sysLogger,
		closers:  closers,
	}
}

// Close releases the broker and cache connections in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.GeminiBaseURL
}

// connectRedis returns nil when redis is unreachable; the hub then stays
// instance-local and live session leases are not shared.
func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
