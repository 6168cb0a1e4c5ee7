package shared

// Backend permission names as issued in the identity payload.
const (
	PermUserRead   = "user:read"
	PermUserCreate = "user:create"
	PermUserUpdate = "user:update"
	PermUserDelete = "user:delete"

	PermRoleRead       = "role:read"
	PermPermissionRead = "permission:read"
	PermSystemRead     = "system:read"
)

// CoreScopes lists the permissions the dashboard itself checks.
func CoreScopes() []string {
	return []string{
		PermUserRead,
		PermUserCreate,
		PermUserUpdate,
		PermUserDelete,
		PermRoleRead,
		PermPermissionRead,
		PermSystemRead,
	}
}
