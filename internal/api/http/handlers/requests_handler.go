package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-service/internal/api/dto"
	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/lifecycle"
	"github.com/spec-kit/request-service/internal/service"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

// RequestsHandler manages request endpoints.
type RequestsHandler struct {
	service *service.RequestService
	audit   *service.AuditService
}

// NewRequestsHandler constructs handler. audit may be nil.
func NewRequestsHandler(requestService *service.RequestService, audit *service.AuditService) *RequestsHandler {
	return &RequestsHandler{service: requestService, audit: audit}
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	var filter service.RequestListFilter
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseRequestStatus(raw)
		if !ok {
			return lifecycle.ErrInvalidStatus
		}
		filter.Status = &status
	}
	if raw := c.Query("technician_id"); raw != "" {
		techID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return lifecycle.ErrInvalidTechnician
		}
		filter.TechnicianID = &techID
	}

	reqs, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Requests retrieved successfully", "data": dto.NewRequestList(reqs)})
}

// Mine GET /requests/mine.
func (h *RequestsHandler) Mine(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	reqs, err := h.service.ListForTechnician(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestList(reqs)})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "request")
	if err != nil {
		return err
	}
	req, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Request retrieved successfully", "data": dto.NewRequestResponse(req)})
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var body dto.CreateRequestRequest
	if err := c.BodyParser(&body); err != nil {
		return invalidPayload()
	}
	req, err := h.service.Create(c.UserContext(), principal, service.RequestCreateInput{
		Title:       body.Title,
		Location:    body.Location,
		Category:    body.Category,
		Language:    body.Language,
		Priority:    body.Priority,
		Description: body.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "Request created successfully", "data": dto.NewRequestResponse(req)})
}

// Assign PATCH /requests/assign/:id.
func (h *RequestsHandler) Assign(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "request")
	if err != nil {
		return err
	}
	var body dto.AssignRequestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return invalidPayload()
		}
	}
	req, err := h.service.Assign(c.UserContext(), principal, id, body.Technician())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Request assigned successfully", "data": dto.NewRequestResponse(req)})
}

// Approve PATCH /requests/approve/:id.
func (h *RequestsHandler) Approve(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "request")
	if err != nil {
		return err
	}
	req, err := h.service.Approve(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Request approved", "data": dto.NewRequestResponse(req)})
}

// Update PUT/PATCH /requests/:id. An unknown id may answer 200 with null data.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "request")
	if err != nil {
		return err
	}
	var body dto.UpdateRequestRequest
	if err := c.BodyParser(&body); err != nil {
		return invalidPayload()
	}
	req, err := h.service.Update(c.UserContext(), principal, id, lifecycle.Patch{
		TechnicianID: body.Technician(),
		Status:       body.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Request updated successfully", "data": dto.NewRequestResponse(req)})
}

// SetStatus PATCH /requests/status/:id.
func (h *RequestsHandler) SetStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "request")
	if err != nil {
		return err
	}
	var body dto.StatusRequest
	if err := c.BodyParser(&body); err != nil {
		return invalidPayload()
	}
	if body.Status == nil {
		return apperrors.NewValidationCode(apperrors.CodeMissingFields, "Status is required")
	}
	req, err := h.service.SetStatus(c.UserContext(), principal, id, *body.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Status updated successfully", "data": dto.NewRequestResponse(req)})
}

// Delete DELETE /requests/:id.
func (h *RequestsHandler) Delete(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "request")
	if err != nil {
		return err
	}
	if err := h.service.Remove(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("Request with id %d deleted successfully", id)})
}

// History GET /requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	id, err := parseID(c, "request")
	if err != nil {
		return err
	}
	if h.audit == nil {
		return c.JSON(fiber.Map{"data": []dto.AuditEntryResponse{}})
	}
	entries, err := h.audit.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditList(entries)})
}
