package domain

// Role enumerates caller roles carried on access tokens.
type Role string

const (
	RoleAgent       Role = "agent"
	RoleTenantAdmin Role = "tenant_admin"
	RoleGlobalAdmin Role = "global_admin"
)
