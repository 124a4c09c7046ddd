// internals/middlewares/auth/auth_middleware.go
package auth

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"academy_backend/internals/constants"
)

const (
	LocUserID = "user_id"
	LocRoles  = "user_roles"
)

// AuthJWT verifies an HS256 bearer token and stores user id and roles in Locals.
func AuthJWT(secret string) fiber.Handler {
	secret = strings.TrimSpace(secret)
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, secret); err != nil {
			return err
		}
		return c.Next()
	}
}

// AdminOnly = AuthJWT + role admin/owner.
func AdminOnly(secret string) fiber.Handler {
	secret = strings.TrimSpace(secret)
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, secret); err != nil {
			return err
		}
		if !hasAnyRole(c, constants.OwnerAndAbove...) {
			return fiber.NewError(fiber.StatusForbidden, constants.RoleErrorAdmin("the admin API"))
		}
		return c.Next()
	}
}

func authenticate(c *fiber.Ctx, secret string) error {
	if secret == "" {
		log.Println("[AUTH ERROR] JWT_SECRET kosong")
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - auth not configured")
	}

	raw, err := extractBearerToken(c)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - "+err.Error())
	}

	// exp/nbf divalidasi oleh parser
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - invalid token")
	}

	c.Locals(LocUserID, userIDFromClaims(claims))
	c.Locals(LocRoles, rolesFromClaims(claims))
	return nil
}
