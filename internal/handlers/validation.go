package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

var errInvalidLocals = errors.New("invalid token locals")

func parseTenantID(c *fiber.Ctx) (int64, error) {
	value, ok := c.Locals("tenant_id").(string)
	if !ok {
		return 0, errInvalidLocals
	}
	tenantID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || tenantID <= 0 {
		return 0, errInvalidLocals
	}
	return tenantID, nil
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}
