package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// SubmitTextTicket sends a text ticket for classification and resolution.
func (c *Client) SubmitTextTicket(ctx context.Context, input domain.TextTicketInput) (*domain.Ticket, error) {
	payload := textTicketRequest{Subject: input.Subject, Body: input.Body}
	if strings.TrimSpace(input.AdminSolution) != "" {
		note := input.AdminSolution
		payload.AdminSolution = &note
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("failed to marshal ticket: %w", err))
	}

	var resp wireTicket
	if err := c.do(ctx, request{
		operation:   "submit_text_ticket",
		method:      http.MethodPost,
		path:        c.ticketPath("/tickets/submit"),
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, &resp); err != nil {
		return nil, err
	}
	ticket := resp.toDomain(domain.TicketSourceText)
	return &ticket, nil
}

// SubmitImageTicket uploads a screenshot ticket; the backend OCRs the image
// and appends the extracted text to the body.
func (c *Client) SubmitImageTicket(ctx context.Context, input domain.ImageTicketInput) (*domain.Ticket, error) {
	if input.Image == nil {
		return nil, apperrors.NewValidationError("image is required", nil)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := [][2]string{{"subject", input.Subject}, {"body", input.Body}}
	if strings.TrimSpace(input.AdminSolution) != "" {
		fields = append(fields, [2]string{"admin_solution", input.AdminSolution})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, fileNameOrDefault(input.Image.FileName)))
	header.Set("Content-Type", input.Image.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if _, err := part.Write(input.Image.Data); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var resp wireTicket
	if err := c.do(ctx, request{
		operation:   "submit_image_ticket",
		method:      http.MethodPost,
		path:        c.ticketPath("/ocr/submit-image"),
		body:        &buf,
		contentType: writer.FormDataContentType(),
	}, &resp); err != nil {
		return nil, err
	}
	ticket := resp.toDomain(domain.TicketSourceImage)
	return &ticket, nil
}

// ListTickets fetches every ticket as one flat, id-unique sequence.
func (c *Client) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{
		operation: "list_tickets",
		method:    http.MethodGet,
		path:      c.ticketPath("/tickets/all"),
	}, &raw); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []domain.Ticket{}, nil
	}
	tickets, ok := decodeTicketList(raw)
	if !ok {
		return nil, apperrors.NewServerError(http.StatusOK, "unexpected ticket list response")
	}
	return uniqueTickets(tickets, c.logger), nil
}

// UpdateAdminSolution persists an admin note. The returned ticket is nil when
// the backend answers without a body.
func (c *Client) UpdateAdminSolution(ctx context.Context, ticketID, adminSolution string) (*domain.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	body, err := json.Marshal(adminSolutionRequest{AdminSolution: adminSolution})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var resp *wireTicket
	if err := c.do(ctx, request{
		operation:   "update_admin_solution",
		method:      http.MethodPatch,
		path:        c.ticketPath("/tickets/" + url.PathEscape(ticketID) + "/admin-solution"),
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	ticket := resp.toDomain(domain.TicketSourceText)
	if ticket.ID == "" {
		ticket.ID = ticketID
	}
	return &ticket, nil
}

func fileNameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return "screenshot"
	}
	return name
}
