package models

import "fmt"

const (
	PermAccountsRead   = "accounts:read"
	PermAccountsManage = "accounts:manage"
	PermPersonasRead   = "personas:read"
	PermPersonasWrite  = "personas:write"
	PermWorkspaceRead  = "workspace:read"
	PermWorkspaceWrite = "workspace:write"
	PermChatUse        = "chat:use"
)

// rolePermissions is the exhaustive role to permission-set table. It is
// fixed at process start; every declared Role must have an entry.
var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermAccountsRead,
		PermAccountsManage,
		PermPersonasRead,
		PermPersonasWrite,
		PermWorkspaceRead,
		PermWorkspaceWrite,
		PermChatUse,
	},
	RoleMember: {
		PermAccountsRead,
		PermPersonasRead,
		PermWorkspaceRead,
		PermChatUse,
	},
}

func init() {
	for _, role := range []Role{RoleAdmin, RoleMember} {
		if _, ok := rolePermissions[role]; !ok {
			panic(fmt.Sprintf("role %q has no permission set", role))
		}
	}
}

// PermissionsForRole returns the permission list for a role. The second
// return value is false for an unrecognized role, which callers must
// treat differently from a known role lacking a permission.
func PermissionsForRole(role Role) ([]string, bool) {
	perms, ok := rolePermissions[role]
	return perms, ok
}

// RoleHasPermission reports whether the role's permission list contains
// the exact permission string.
func RoleHasPermission(role Role, permission string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}
