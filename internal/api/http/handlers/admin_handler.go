package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// AdminHandler drives the admin dashboard's ticket workspace.
type AdminHandler struct{}

// NewAdminHandler constructs handler.
func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

func (h *AdminHandler) workspace(c *fiber.Ctx) (*workspace.Workspace, error) {
	console, err := consoleFor(c)
	if err != nil {
		return nil, err
	}
	return console.Workspace, nil
}

func dashboard(c *fiber.Ctx, ws *workspace.Workspace) error {
	return c.JSON(fiber.Map{"data": dto.NewDashboardResponse(ws.Snapshot())})
}

// Refresh POST /admin/tickets/refresh. A failed fetch keeps the previous
// collection and reports the error.
func (h *AdminHandler) Refresh(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := ws.Refresh(c.UserContext()); err != nil {
		return err
	}
	return dashboard(c, ws)
}

// List GET /admin/tickets. Any of text, priority, type or status replaces the
// filter and rewinds to page 1; page and page_size then move the cursor.
func (h *AdminHandler) List(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	if filter, ok := parseFilter(c); ok {
		ws.ApplyFilters(filter)
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("page must be a number", nil)
		}
		ws.Paginate(page, 0)
	}
	return dashboard(c, ws)
}

func parseFilter(c *fiber.Ctx) (workspace.Filter, bool) {
	keys := []string{"text", "priority", "type", "status"}
	present := false
	for _, k := range keys {
		if c.Request().URI().QueryArgs().Has(k) {
			present = true
			break
		}
	}
	if !present {
		return workspace.Filter{}, false
	}
	return workspace.Filter{
		Text:     c.Query("text"),
		Priority: c.Query("priority"),
		Type:     c.Query("type"),
		Status:   c.Query("status"),
	}, true
}

// ToggleExpand POST /admin/tickets/:id/expand.
func (h *AdminHandler) ToggleExpand(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	expanded, err := ws.ToggleExpand(c.Params("id"))
	if err != nil {
		return err
	}
	preview, _ := ws.Preview(c.Params("id"))
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id"), "expanded": expanded, "body": preview}})
}

// BeginEdit POST /admin/tickets/:id/edit.
func (h *AdminHandler) BeginEdit(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	if err := ws.BeginEdit(id); err != nil {
		return err
	}
	draft, _ := ws.Draft(id)
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "editing": true, "draft": draft}})
}

// UpdateDraft PUT /admin/tickets/:id/edit.
func (h *AdminHandler) UpdateDraft(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	var req dto.DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	id := c.Params("id")
	if err := ws.UpdateDraft(id, req.Draft); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "editing": true, "draft": req.Draft}})
}

// CancelEdit DELETE /admin/tickets/:id/edit.
func (h *AdminHandler) CancelEdit(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	ws.CancelEdit(c.Params("id"))
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id"), "editing": false}})
}

// SaveAdminSolution PUT /admin/tickets/:id/admin-solution. When the body
// carries no admin_solution the open draft is saved.
func (h *AdminHandler) SaveAdminSolution(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	var req dto.AdminSolutionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	var text string
	if req.AdminSolution != nil {
		text = *req.AdminSolution
	} else {
		draft, editing := ws.Draft(id)
		if !editing {
			return apperrors.NewValidationError("admin_solution is required", nil)
		}
		text = draft
	}

	if err := ws.SaveAdminSolution(c.UserContext(), id, text); err != nil {
		if workspace.IsNotFound(err) {
			return err
		}
		return dashboard(c.Status(fiber.StatusBadGateway), ws)
	}
	return dashboard(c, ws)
}

// ToggleResolved POST /admin/tickets/:id/resolve.
func (h *AdminHandler) ToggleResolved(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	resolved, err := ws.ToggleResolved(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id"), "is_resolved": resolved, "stats": ws.Stats()}})
}

// DismissError POST /admin/tickets/dismiss-error.
func (h *AdminHandler) DismissError(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	ws.DismissError()
	return dashboard(c, ws)
}
