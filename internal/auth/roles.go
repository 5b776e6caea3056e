package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-service/internal/domain"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		tc, ok := TenantFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[tc.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
