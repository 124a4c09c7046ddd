// internals/middlewares/auth/claim_utils.go
package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

/* ======== Extractors ======== */

func extractBearerToken(c *fiber.Ctx) (string, error) {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if auth == "" {
		return "", errors.New("no token provided")
	}

	// toleransi spasi ganda & case-insensitive
	fields := strings.Fields(auth)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", errors.New("invalid token format")
	}
	tok := strings.Trim(strings.TrimSpace(fields[1]), "\"'")
	if tok == "" {
		return "", errors.New("empty token")
	}
	return tok, nil
}

func strClaim(m jwt.MapClaims, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func readStringSlice(v any) []string {
	out := make([]string, 0)
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, it := range t {
			if s, ok := it.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// rolesFromClaims merges the legacy "role" claim with "roles_global".
func rolesFromClaims(claims jwt.MapClaims) []string {
	roles := readStringSlice(claims["roles_global"])
	if r := strClaim(claims, "role"); r != "" {
		roles = append([]string{r}, roles...)
	}
	for i := range roles {
		roles[i] = strings.ToLower(roles[i])
	}
	return roles
}

// userIDFromClaims: id, sub, user_id in that order.
func userIDFromClaims(claims jwt.MapClaims) string {
	for _, k := range []string{"id", "sub", "user_id"} {
		if v := strClaim(claims, k); v != "" {
			return v
		}
	}
	return ""
}
