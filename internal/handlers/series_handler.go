package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/d-krstic/StudioOpsBack/internal/events"
	"github.com/d-krstic/StudioOpsBack/internal/models"
	"github.com/d-krstic/StudioOpsBack/internal/services"
)

type seriesApplicationService interface {
	CreateSeries(ctx context.Context, tenantID int64, input services.BookSessionInput, rule models.RecurrenceRule) (*services.SeriesResult, error)
	UpdateSeries(ctx context.Context, tenantID, seriesID int64, patch services.SeriesPatch) (*services.SeriesResult, error)
	DeleteSeries(ctx context.Context, tenantID, seriesID int64) error
}

type SeriesHandler struct {
	service seriesApplicationService
	hub     *events.Hub
}

func NewSeriesHandler(service *services.BookingService, hub *events.Hub) *SeriesHandler {
	return &SeriesHandler{service: service, hub: hub}
}

type createSeriesRequest struct {
	bookSessionRequest
	Pattern string              `json:"pattern" validate:"required,oneof=daily weekly biweekly monthly variable"`
	EndDate string              `json:"end_date" validate:"required"`
	Slots   []models.WeeklySlot `json:"slots"`
}

type updateSeriesRequest struct {
	EndDate string `json:"end_date" validate:"required"`
}

func (h *SeriesHandler) CreateSeries(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createSeriesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	input, err := req.toInput()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.service.CreateSeries(c.Context(), tenantID, *input, models.RecurrenceRule{
		Pattern: req.Pattern,
		EndDate: endDate,
		Slots:   req.Slots,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	h.hub.Publish(events.Event{
		Type:     events.EventSeriesCreated,
		TenantID: strconv.FormatInt(tenantID, 10),
		SeriesID: result.Series.ID,
	})
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *SeriesHandler) UpdateSeries(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	seriesID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid series id"})
	}

	var req updateSeriesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.service.UpdateSeries(c.Context(), tenantID, seriesID, services.SeriesPatch{EndDate: &endDate})
	if err != nil {
		return mapBookingError(c, err)
	}

	h.hub.Publish(events.Event{
		Type:     events.EventSeriesUpdated,
		TenantID: strconv.FormatInt(tenantID, 10),
		SeriesID: seriesID,
	})
	return c.JSON(result)
}

func (h *SeriesHandler) DeleteSeries(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	seriesID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid series id"})
	}

	if err := h.service.DeleteSeries(c.Context(), tenantID, seriesID); err != nil {
		return mapBookingError(c, err)
	}

	h.hub.Publish(events.Event{
		Type:     events.EventSeriesDeleted,
		TenantID: strconv.FormatInt(tenantID, 10),
		SeriesID: seriesID,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// parseDate accepts a bare date or a full RFC3339 timestamp.
func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if parsed, err := time.Parse("2006-01-02", trimmed); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, errors.New("end_date must be YYYY-MM-DD or RFC3339")
	}
	return parsed, nil
}
