package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/d-krstic/StudioOpsBack/internal/events"
	"github.com/d-krstic/StudioOpsBack/internal/models"
	"github.com/d-krstic/StudioOpsBack/internal/repository"
	"github.com/d-krstic/StudioOpsBack/internal/services"
)

type bookingApplicationService interface {
	BookSession(ctx context.Context, tenantID int64, input services.BookSessionInput) (*models.Session, error)
	RescheduleSession(ctx context.Context, tenantID, sessionID int64, newStart, newEnd time.Time, allowTimeChange bool) (*models.Session, error)
	CancelSession(ctx context.Context, tenantID, sessionID int64) error
	UpdateStatus(ctx context.Context, tenantID, sessionID int64, requestedStatus string) (*models.Session, error)
	GetSession(ctx context.Context, tenantID, sessionID int64) (*models.SessionDetail, error)
	ListSessions(ctx context.Context, tenantID int64, filter repository.SessionListFilter) ([]models.Session, error)
	AddParticipant(ctx context.Context, tenantID, sessionID, clientID, clientPackageID int64) (*models.SessionParticipant, error)
	RemoveParticipant(ctx context.Context, tenantID, sessionID, clientID int64) error
}

type SessionHandler struct {
	service bookingApplicationService
	hub     *events.Hub
}

func NewSessionHandler(service *services.BookingService, hub *events.Hub) *SessionHandler {
	return &SessionHandler{service: service, hub: hub}
}

type bookSessionRequest struct {
	StudioID        int64   `json:"studio_id" validate:"required,gt=0"`
	RoomID          int64   `json:"room_id" validate:"required,gt=0"`
	CoachID         int64   `json:"coach_id" validate:"required,gt=0"`
	ClientID        *int64  `json:"client_id"`
	ClientPackageID *int64  `json:"client_package_id"`
	StartsAt        string  `json:"starts_at" validate:"required"`
	EndsAt          string  `json:"ends_at" validate:"required"`
	Kind            string  `json:"kind" validate:"required,oneof=individual group"`
	Capacity        int     `json:"capacity" validate:"gte=0"`
	Notes           *string `json:"notes"`
}

type rescheduleRequest struct {
	StartsAt      string `json:"starts_at" validate:"required"`
	EndsAt        string `json:"ends_at" validate:"required"`
	AllowOverride bool   `json:"allow_time_change_override"`
}

type updateSessionStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type addParticipantRequest struct {
	ClientID        int64 `json:"client_id" validate:"required,gt=0"`
	ClientPackageID int64 `json:"client_package_id" validate:"required,gt=0"`
}

func (h *SessionHandler) BookSession(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req bookSessionRequest
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

	session, err := h.service.BookSession(c.Context(), tenantID, *input)
	if err != nil {
		return mapBookingError(c, err)
	}

	h.hub.Publish(events.Event{
		Type:      events.EventSessionBooked,
		TenantID:  strconv.FormatInt(tenantID, 10),
		SessionID: session.ID,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := h.service.GetSession(c.Context(), tenantID, sessionID)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	filter := repository.SessionListFilter{
		Status: strings.TrimSpace(c.Query("status")),
	}
	filter.StudioID, _ = strconv.ParseInt(c.Query("studio_id"), 10, 64)
	filter.RoomID, _ = strconv.ParseInt(c.Query("room_id"), 10, 64)
	filter.CoachID, _ = strconv.ParseInt(c.Query("coach_id"), 10, 64)
	filter.ClientID, _ = strconv.ParseInt(c.Query("client_id"), 10, 64)
	if from := strings.TrimSpace(c.Query("from")); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be a valid RFC3339 timestamp"})
		}
		filter.From = &parsed
	}
	if to := strings.TrimSpace(c.Query("to")); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be a valid RFC3339 timestamp"})
		}
		filter.To = &parsed
	}

	sessions, err := h.service.ListSessions(c.Context(), tenantID, filter)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) RescheduleSession(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req rescheduleRequest
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

	session, err := h.service.RescheduleSession(c.Context(), tenantID, sessionID, startsAt, endsAt, req.AllowOverride)
	if err != nil {
		return mapBookingError(c, err)
	}

	h.hub.Publish(events.Event{
		Type:      events.EventSessionRescheduled,
		TenantID:  strconv.FormatInt(tenantID, 10),
		SessionID: session.ID,
	})
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	if err := h.service.CancelSession(c.Context(), tenantID, sessionID); err != nil {
		return mapBookingError(c, err)
	}

	h.hub.Publish(events.Event{
		Type:      events.EventSessionCancelled,
		TenantID:  strconv.FormatInt(tenantID, 10),
		SessionID: sessionID,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) UpdateStatus(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateSessionStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := h.service.UpdateStatus(c.Context(), tenantID, sessionID, req.Status)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) AddParticipant(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req addParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	participant, err := h.service.AddParticipant(c.Context(), tenantID, sessionID, req.ClientID, req.ClientPackageID)
	if err != nil {
		return mapBookingError(c, err)
	}

	h.hub.Publish(events.Event{
		Type:      events.EventParticipantJoined,
		TenantID:  strconv.FormatInt(tenantID, 10),
		SessionID: sessionID,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"participant": participant})
}

func (h *SessionHandler) RemoveParticipant(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}
	clientID, err := parseIDParam(c, "clientId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	if err := h.service.RemoveParticipant(c.Context(), tenantID, sessionID, clientID); err != nil {
		return mapBookingError(c, err)
	}

	h.hub.Publish(events.Event{
		Type:      events.EventParticipantLeft,
		TenantID:  strconv.FormatInt(tenantID, 10),
		SessionID: sessionID,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (r *bookSessionRequest) toInput() (*services.BookSessionInput, error) {
	startsAt, endsAt, err := parseWindow(r.StartsAt, r.EndsAt)
	if err != nil {
		return nil, err
	}
	return &services.BookSessionInput{
		StudioID:        r.StudioID,
		RoomID:          r.RoomID,
		CoachID:         r.CoachID,
		ClientID:        r.ClientID,
		ClientPackageID: r.ClientPackageID,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		Kind:            r.Kind,
		Capacity:        r.Capacity,
		Notes:           r.Notes,
	}, nil
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("starts_at must be a valid RFC3339 timestamp")
	}
	endsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(end))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("ends_at must be a valid RFC3339 timestamp")
	}
	return startsAt, endsAt, nil
}

func mapBookingError(c *fiber.Ctx, err error) error {
	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Requested time conflicts with an existing booking",
			"code":  "conflict",
			"conflict": fiber.Map{
				"resource":               conflict.Resource,
				"resource_id":            conflict.ResourceID,
				"conflicting_session_id": conflict.ConflictingSessionID,
				"time_off_id":            conflict.TimeOffID,
				"reason":                 conflict.Reason,
			},
		})
	}

	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrCrossStudio):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTimeChangeNotAllowed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "time_change_not_allowed",
		})
	case errors.Is(err, services.ErrInsufficientCredit):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrCapacityFull):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateParticipant):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidAdjustment):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
