package controller

import (
	"errors"
	"io"
	"strings"

	"ai-interview-be/internal/dto"
	"ai-interview-be/internal/pkg/serverutils"
	"ai-interview-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IInterviewController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type interviewController struct {
	interviewService service.IInterviewService
	maxCVBytes       int
}

func NewInterviewController(interviewService service.IInterviewService, maxCVBytes int) IInterviewController {
	return &interviewController{
		interviewService: interviewService,
		maxCVBytes:       maxCVBytes,
	}
}

func (c *interviewController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/interview/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("stats", c.Stats)
	h.Post("", c.Create)
	h.Get("", c.GetAll)
	h.Get(":id", c.Show)
}

// Create accepts JSON, or a multipart form with an optional cv file.
func (c *interviewController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateInterviewRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.Email = serverutils.Email(ctx)

	if strings.HasPrefix(ctx.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := c.readCV(ctx, &req); err != nil {
			return err
		}
	}

	res, err := c.interviewService.Create(ctx.UserContext(), userId, &req)
	if err != nil {
		if errors.Is(err, service.ErrUnreadableCV) {
			return fiber.NewError(fiber.StatusBadRequest, service.ErrUnreadableCV.Error())
		}
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create interview", res))
}

func (c *interviewController) readCV(ctx *fiber.Ctx, req *dto.CreateInterviewRequest) error {
	file, err := ctx.FormFile("cv")
	if err != nil {
		// The cv part is optional.
		return nil
	}
	if c.maxCVBytes > 0 && file.Size > int64(c.maxCVBytes) {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "CV file is too large")
	}

	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Unable to read CV file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Unable to read CV file")
	}
	req.CVFileName = file.Filename
	req.CVData = data
	return nil
}

func (c *interviewController) Show(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid interview id")
	}

	res, err := c.interviewService.Show(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Interview not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show interview", res))
}

func (c *interviewController) GetAll(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.interviewService.GetAll(ctx.UserContext(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all interviews", res))
}

func (c *interviewController) Stats(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.interviewService.Stats(ctx.UserContext(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get interview stats", res))
}
