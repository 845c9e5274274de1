package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/d-krstic/StudioOpsBack/internal/models"
	"github.com/d-krstic/StudioOpsBack/internal/services"
)

type timeOffApplicationService interface {
	Request(ctx context.Context, tenantID, coachID int64, startsAt, endsAt time.Time, reason *string) (*models.TimeOffWindow, error)
	Resolve(ctx context.Context, tenantID, windowID int64, status string) (*models.TimeOffWindow, error)
}

type TimeOffHandler struct {
	service timeOffApplicationService
}

func NewTimeOffHandler(service *services.TimeOffService) *TimeOffHandler {
	return &TimeOffHandler{service: service}
}

type requestTimeOffRequest struct {
	CoachID  int64   `json:"coach_id" validate:"required,gt=0"`
	StartsAt string  `json:"starts_at" validate:"required"`
	EndsAt   string  `json:"ends_at" validate:"required"`
	Reason   *string `json:"reason"`
}

type resolveTimeOffRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func (h *TimeOffHandler) RequestTimeOff(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req requestTimeOffRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	startsAt, endsAt, err := parseWindow(req.StartsAt, req.EndsAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	window, err := h.service.Request(c.Context(), tenantID, req.CoachID, startsAt, endsAt, req.Reason)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"time_off": window})
}

func (h *TimeOffHandler) ResolveTimeOff(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	windowID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid time off id"})
	}

	var req resolveTimeOffRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	window, err := h.service.Resolve(c.Context(), tenantID, windowID, req.Status)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"time_off": window})
}
