package rbac

import "fmt"

// 权限常量
const (
	PermissionReadDashboard   = "dashboard:read"
	PermissionWriteTask       = "task:write"
	PermissionWriteProject    = "project:write"
	PermissionGenerateContent = "content:generate"
	PermissionAdminOutbox     = "admin:outbox"
)

// 角色常量
const (
	RoleViewer  = "viewer"
	RoleCurator = "curator"
	RoleAdmin   = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionReadDashboard,
	},
	RoleCurator: {
		PermissionReadDashboard,
		PermissionWriteTask,
		PermissionWriteProject,
		PermissionGenerateContent,
	},
	RoleAdmin: {
		PermissionReadDashboard,
		PermissionWriteTask,
		PermissionWriteProject,
		PermissionGenerateContent,
		PermissionAdminOutbox,
	},
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查权限，返回错误便于处理
func CheckPermission(userID int, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("insufficient permissions: role %q lacks %s", e.Role, e.Permission)
}
