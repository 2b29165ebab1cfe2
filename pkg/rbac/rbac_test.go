package rbac

import (
	"errors"
	"testing"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleCurator, PermissionGenerateContent, true},
		{RoleCurator, PermissionAdminOutbox, false},
		{RoleViewer, PermissionGenerateContent, false},
		{RoleViewer, PermissionReadDashboard, true},
		{RoleAdmin, PermissionAdminOutbox, true},
		{"intern", PermissionReadDashboard, false},
	}

	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.permission); got != tt.want {
			t.Fatalf("HasPermission(%s, %s)=%v, want %v", tt.role, tt.permission, got, tt.want)
		}
	}
}

func TestCheckPermission(t *testing.T) {
	err := CheckPermission(7, RoleViewer, PermissionGenerateContent)

	var denied *PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("CheckPermission() err=%v, want *PermissionDeniedError", err)
	}
	if denied.UserID != 7 || denied.Permission != PermissionGenerateContent {
		t.Fatalf("denied=%+v", denied)
	}

	if err := CheckPermission(7, RoleCurator, PermissionGenerateContent); err != nil {
		t.Fatalf("CheckPermission(curator) err=%v", err)
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleCurator) || ValidRole("root") {
		t.Fatalf("ValidRole() mismatch")
	}
}
