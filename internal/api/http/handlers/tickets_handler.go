package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// TicketsHandler manages the user dashboard's submission endpoints.
type TicketsHandler struct {
	maxImageBytes int64
}

// NewTicketsHandler constructs handler. Uploads larger than maxImageBytes are
// cut off while reading and then rejected by validation.
func NewTicketsHandler(maxImageBytes int64) *TicketsHandler {
	return &TicketsHandler{maxImageBytes: maxImageBytes}
}

// SubmitText POST /tickets/text.
func (h *TicketsHandler) SubmitText(c *fiber.Ctx) error {
	console, err := consoleFor(c)
	if err != nil {
		return err
	}
	var req dto.TextTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := console.Submissions.SubmitText(c.UserContext(), domain.TextTicketInput{
		Subject:       req.Subject,
		Body:          req.Body,
		AdminSolution: req.AdminSolution,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SubmitImage POST /tickets/image, multipart with subject, body and image.
func (h *TicketsHandler) SubmitImage(c *fiber.Ctx) error {
	console, err := consoleFor(c)
	if err != nil {
		return err
	}

	input := domain.ImageTicketInput{
		Subject:       c.FormValue("subject"),
		Body:          c.FormValue("body"),
		AdminSolution: c.FormValue("admin_solution"),
	}
	if header, err := c.FormFile("image"); err == nil {
		upload, err := h.readUpload(header)
		if err != nil {
			return err
		}
		input.Image = upload
	}

	ticket, err := console.Submissions.SubmitImage(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func (h *TicketsHandler) readUpload(header *multipart.FileHeader) (*domain.ImageUpload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable upload", nil)
	}
	defer file.Close()

	reader := io.Reader(file)
	if h.maxImageBytes > 0 {
		reader = io.LimitReader(file, h.maxImageBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("read upload: %w", err))
	}
	return &domain.ImageUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// State GET /tickets/submission.
func (h *TicketsHandler) State(c *fiber.Ctx) error {
	console, err := consoleFor(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponse(console.Submissions.State())})
}

// DismissError POST /tickets/submission/dismiss.
func (h *TicketsHandler) DismissError(c *fiber.Ctx) error {
	console, err := consoleFor(c)
	if err != nil {
		return err
	}
	console.Submissions.DismissError()
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponse(console.Submissions.State())})
}

// Reset POST /tickets/submission/reset.
func (h *TicketsHandler) Reset(c *fiber.Ctx) error {
	console, err := consoleFor(c)
	if err != nil {
		return err
	}
	console.Submissions.Reset()
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponse(console.Submissions.State())})
}
