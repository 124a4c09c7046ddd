package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// OnlyRoles must run after AuthJWT.
func OnlyRoles(customMessage string, roles ...string) fiber.Handler {
	if customMessage == "" {
		customMessage = "Forbidden: you are not authorized to access this resource"
	}
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(LocRoles).([]string); !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: missing role information")
		}
		if !hasAnyRole(c, roles...) {
			return fiber.NewError(fiber.StatusForbidden, customMessage)
		}
		return c.Next()
	}
}

func hasAnyRole(c *fiber.Ctx, allowed ...string) bool {
	have, _ := c.Locals(LocRoles).([]string)
	for _, r := range have {
		for _, a := range allowed {
			if strings.EqualFold(r, a) {
				return true
			}
		}
	}
	return false
}
