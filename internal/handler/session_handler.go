package handler

import (
	"context"
	"errors"

	"ai-interview-be/internal/config"
	"ai-interview-be/internal/entity"
	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/internal/pkg/serverutils"
	"ai-interview-be/internal/repository/memory"
	"ai-interview-be/internal/service"
	internalWS "ai-interview-be/internal/websocket"
	"ai-interview-be/pkg/clock"
	"ai-interview-be/pkg/interview/landmark"
	"ai-interview-be/pkg/interview/session"
	"ai-interview-be/pkg/interview/speech"
	"ai-interview-be/pkg/interview/voice"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const sessionModule = "SessionHandler"

// SessionHandler upgrades the live interview socket and runs one session per connection.
type SessionHandler struct {
	interviews service.IInterviewService
	oracle     service.IOracleService
	synth      voice.Synthesizer
	sessions   *memory.SessionRepository
	cfg        config.InterviewConfig
	logger     logger.ILogger
	sessionLog logger.ILogger
}

func NewSessionHandler(
	interviews service.IInterviewService,
	oracle service.IOracleService,
	synth voice.Synthesizer,
	sessions *memory.SessionRepository,
	cfg config.InterviewConfig,
	log logger.ILogger,
	sessionLog logger.ILogger,
) *SessionHandler {
	return &SessionHandler{
		interviews: interviews,
		oracle:     oracle,
		synth:      synth,
		sessions:   sessions,
		cfg:        cfg,
		logger:     log,
		sessionLog: sessionLog,
	}
}

func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/interview/v1/:id/live", serverutils.JwtMiddleware, h.ServeLive)
}

// ServeLive checks ownership before the upgrade so the browser gets a plain
// HTTP status for a missing, finished or already running interview.
func (h *SessionHandler) ServeLive(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid interview id")
	}

	interview, err := h.interviews.Show(ctx.UserContext(), userID, id)
	if err != nil {
		return err
	}
	if interview == nil {
		return fiber.NewError(fiber.StatusNotFound, "Interview not found")
	}
	if interview.Status == entity.InterviewStatusCompleted {
		return fiber.NewError(fiber.StatusConflict, "Interview already completed")
	}
	if _, live := h.sessions.Get(id); live {
		return fiber.NewError(fiber.StatusConflict, memory.ErrSessionActive.Error())
	}

	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.run(conn, id, userID)
	})(ctx)
}

func (h *SessionHandler) run(conn *websocket.Conn, id, userID uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fields := map[string]interface{}{"session_id": id.String(), "user_id": userID.String()}

	peer := internalWS.NewPeer(conn, id, h.sessionLog, internalWS.PeerOptions{
		PlaybackTimeout: h.cfg.PlaybackTimeout,
		DeviceTimeout:   h.cfg.DeviceTimeout,
	})
	capture := speech.NewController(peer, clock.Real(), h.sessionLog, speech.Options{
		RestartDelay: h.cfg.RestartDelay,
		OnUpdate:     peer.SendTranscript,
	})
	landmarks := landmark.NewAdapter(peer, h.sessionLog, landmark.Options{Interval: h.cfg.DetectionInterval})
	speaker := voice.NewController(h.synth, peer, h.sessionLog)

	sess := session.New(id, session.Dependencies{
		Store:     service.NewSessionStore(h.interviews),
		Oracle:    h.oracle,
		Landmarks: landmarks,
		Video:     peer,
		Capture:   capture,
		Speaker:   speaker,
		Devices:   peer,
		Navigator: peer,
		Logger:    h.sessionLog,
	}, session.Options{
		ResumeDelay: h.cfg.ResumeDelay,
		Scheduler:   clock.Real(),
		OnChange:    peer.SendState,
	})

	if err := h.sessions.Claim(ctx, sess); err != nil {
		h.logger.Warn(sessionModule, "Live session rejected", mergeFields(fields, map[string]interface{}{"error": err.Error()}))
		if frame, encErr := internalWS.Encode(internalWS.TypeError, map[string]string{"message": err.Error()}); encErr == nil {
			_ = conn.WriteMessage(websocket.TextMessage, frame)
		}
		_ = conn.Close()
		return
	}
	defer h.sessions.Release(context.Background(), sess)
	h.logger.Info(sessionModule, "Live session started", fields)

	landmarks.Init(ctx)
	go func() {
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn(sessionModule, "Session setup ended early", mergeFields(fields, map[string]interface{}{"error": err.Error()}))
		}
	}()

	peer.Serve(ctx, capture, sess)

	sess.Close()
	h.logger.Info(sessionModule, "Live session closed", mergeFields(fields, map[string]interface{}{
		"phase": string(sess.State().Phase),
	}))
}

func mergeFields(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
