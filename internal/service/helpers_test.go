package service

import (
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/domain"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testTenantContext(tenantID string, role domain.Role) auth.TenantContext {
	return auth.TenantContext{UserID: "user-1", TenantID: tenantID, Role: role}
}
