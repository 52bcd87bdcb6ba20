package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// RequireScope ensures the operator token grants scope.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Claims.HasScope(scope) {
			return apperrors.NewForbidden("token lacks scope " + scope)
		}
		return c.Next()
	}
}
