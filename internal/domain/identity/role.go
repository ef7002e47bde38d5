package identity

// Role is the coarse authorization level of a user
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Permission codes carried in access tokens
const (
	PermCatalogRead   = "catalog:read"
	PermCatalogWrite  = "catalog:write"
	PermCartManage    = "cart:manage"
	PermOrderOwn      = "order:own"
	PermOrderManage   = "order:manage"
	PermUserManage    = "user:manage"
	PermDashboardView = "dashboard:view"
)

var rolePermissions = map[Role][]string{
	RoleCustomer: {PermCatalogRead, PermCartManage, PermOrderOwn},
	RoleAdmin: {
		PermCatalogRead, PermCatalogWrite,
		PermCartManage, PermOrderOwn, PermOrderManage,
		PermUserManage, PermDashboardView,
	},
}

// Permissions returns a copy of the permission codes granted to the role
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
