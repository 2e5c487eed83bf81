package handler

import (
	"errors"

	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/internal/pkg/serverutils"
	"ai-interview-be/internal/repository/implementation"
	"ai-interview-be/internal/service"
	internalWS "ai-interview-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const notificationModule = "NotificationHandler"

type NotificationHandler struct {
	service *service.NotificationService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewNotificationHandler(service *service.NotificationService, hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs upgrades the dashboard notification socket.
func (h *NotificationHandler) ServeWs(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info(notificationModule, "Notification socket opened", map[string]interface{}{"user_id": userID.String()})
		internalWS.ServeWs(h.hub, conn, userID, h.logger)
		h.logger.Info(notificationModule, "Notification socket closed", map[string]interface{}{"user_id": userID.String()})
	})(ctx)
}

func (h *NotificationHandler) GetNotifications(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	limit := ctx.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := ctx.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := h.service.GetNotifications(ctx.UserContext(), userID, limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get notifications", fiber.Map{
		"items": notifications,
		"total": total,
		"page":  offset/limit + 1,
		"limit": limit,
	}))
}

func (h *NotificationHandler) GetUnreadCount(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	count, err := h.service.GetUnreadCount(ctx.UserContext(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get unread count", fiber.Map{"count": count}))
}

func (h *NotificationHandler) MarkAsRead(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid notification id")
	}

	if err := h.service.MarkAsRead(ctx.UserContext(), userID, id); err != nil {
		if errors.Is(err, implementation.ErrNotificationNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Notification not found")
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Notification marked as read", nil))
}

func (h *NotificationHandler) MarkAllAsRead(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	if err := h.service.MarkAllAsRead(ctx.UserContext(), userID); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("All notifications marked as read", nil))
}

func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications")
	notif.Use(serverutils.JwtMiddleware)
	notif.Get("/", h.GetNotifications)
	notif.Get("/unread-count", h.GetUnreadCount)
	notif.Patch("/read-all", h.MarkAllAsRead)
	notif.Patch("/:id/read", h.MarkAsRead)

	router.Get("/ws", serverutils.JwtMiddleware, h.ServeWs)
}
