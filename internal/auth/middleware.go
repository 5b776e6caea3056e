package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-service/internal/domain"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

const tenantContextKey = "tenant_context"

// TenantContext is the authenticated tenant principal, resolved once per
// request and passed by value into service entry points.
type TenantContext struct {
	UserID   string
	TenantID string
	Role     domain.Role
}

// Middleware validates bearer tokens and resolves the tenant context.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication and tenant association for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if claims.TenantID == "" {
		return apperrors.NewUnauthorized("token missing tenant association")
	}

	c.Locals(tenantContextKey, TenantContext{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	})
	return c.Next()
}

// HandleOrWebhook authenticates either a bearer token or the ticket lifecycle
// emitter's shared secret. Secret callers carry no token, so the tenant must be
// named explicitly in the X-Tenant-Id header.
func (m *Middleware) HandleOrWebhook(verifier *WebhookVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := c.Get("X-Webhook-Secret")
		if secret == "" {
			return m.Handle(c)
		}
		if verifier == nil || !verifier.Verify(secret) {
			return apperrors.NewUnauthorized("invalid webhook secret")
		}
		tenantID := c.Get("X-Tenant-Id")
		if tenantID == "" {
			return apperrors.NewUnauthorized("X-Tenant-Id header required with webhook secret")
		}
		c.Locals(tenantContextKey, TenantContext{
			TenantID: tenantID,
			Role:     domain.RoleAgent,
		})
		return c.Next()
	}
}

// TenantFromContext retrieves the authenticated tenant context.
func TenantFromContext(c *fiber.Ctx) (TenantContext, bool) {
	val := c.Locals(tenantContextKey)
	if val == nil {
		return TenantContext{}, false
	}
	tc, ok := val.(TenantContext)
	return tc, ok
}
