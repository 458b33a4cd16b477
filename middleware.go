package accounts

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClaimsContextKey is where the bearer middleware stores validated claims
const ClaimsContextKey = "accounts_claims"

// ClaimsFromFiberContext extracts validated claims placed by Protected
func ClaimsFromFiberContext(c *fiber.Ctx) (AuthClaims, bool) {
	raw := c.Locals(ClaimsContextKey)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// Protected validates the Authorization bearer token as an access token and
// stores the claims in the request context. Every token failure surfaces as
// a generic 401 so validation internals never leak.
func Protected(tokens TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c)
		}

		claims, err := tokens.Validate(tokenString, TokenTypeAccess)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(ClaimsContextKey, claims)
		c.SetUserContext(WithClaimsContext(c.UserContext(), claims))
		return c.Next()
	}
}

// RequireRole gates a route on a minimum role. It composes after Protected
// and is the single authorization predicate for the whole surface.
func RequireRole(minRole UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromFiberContext(c)
		if !ok {
			return unauthorized(c)
		}

		if !claims.IsAtLeast(string(minRole)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": ErrForbidden.Message,
			})
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "invalid or missing authentication token",
	})
}
