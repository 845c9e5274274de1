package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/d-krstic/StudioOpsBack/internal/models"
	"github.com/d-krstic/StudioOpsBack/internal/services"
)

type creditApplicationService interface {
	GetPackage(ctx context.Context, tenantID, packageID int64) (*models.ClientPackage, error)
	Adjust(ctx context.Context, tenantID, packageID int64, delta int, reason string) (*models.ClientPackage, error)
}

type PackageHandler struct {
	service creditApplicationService
}

func NewPackageHandler(service *services.CreditService) *PackageHandler {
	return &PackageHandler{service: service}
}

type adjustCreditRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

func (h *PackageHandler) GetPackage(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	packageID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid package id"})
	}

	pkg, err := h.service.GetPackage(c.Context(), tenantID, packageID)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"package": pkg})
}

func (h *PackageHandler) AdjustCredit(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	tenantID, err := parseTenantID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	packageID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid package id"})
	}

	var req adjustCreditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	pkg, err := h.service.Adjust(c.Context(), tenantID, packageID, req.Delta, req.Reason)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"package": pkg})
}
