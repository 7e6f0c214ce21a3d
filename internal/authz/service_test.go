package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc
}

func TestBuiltinRoleMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	cases := []struct {
		role   string
		obj    string
		act    string
		expect bool
	}{
		{"Shipper", "/api/v1/cargo", "POST", true},
		{"Shipper", "/api/v1/cargo/12", "delete", true},
		{"Shipper", "/api/v1/cargo/12/compatible-vehicles", "GET", true},
		{"Shipper", "/api/v1/vehicles", "POST", false},
		{"Shipper", "/api/v1/iot/readings", "POST", false},
		{"Shipper", "/api/v1/shipments/3/realtime", "GET", true},
		{"Shipper", "/api/v1/shipments/3/reopen", "POST", false},
		{"Shipper", "/api/v1/admin/users", "GET", false},
		{"Carrier", "/api/v1/vehicles/7", "PUT", true},
		{"Carrier", "/api/v1/iot/readings/batch", "POST", true},
		{"Carrier", "/api/v1/iot/simulate/3", "POST", true},
		{"Carrier", "/api/v1/cargo", "POST", false},
		{"Carrier", "/api/v1/matching/assign", "POST", true},
		{"Admin", "/api/v1/admin/audit-events", "GET", true},
		{"Admin", "/api/v1/shipments/3/reopen", "POST", true},
	}
	for _, item := range cases {
		allow, err := svc.EnforceRole(item.role, item.obj, item.act)
		if err != nil {
			t.Fatalf("enforce %s %s %s failed: %v", item.role, item.act, item.obj, err)
		}
		if allow != item.expect {
			t.Fatalf("enforce %s %s %s want=%v got=%v", item.role, item.act, item.obj, item.expect, allow)
		}
	}
}

func TestBootstrapBuiltinRolesIsIdempotent(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	want := map[string]bool{
		"role:member":  true,
		"role:shipper": true,
		"role:carrier": true,
		"role:admin":   true,
	}
	for _, role := range roles {
		delete(want, role)
	}
	if len(want) != 0 {
		t.Fatalf("builtin roles missing: %v", want)
	}
	policies, err := svc.GetRolePolicies("shipper")
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	if len(policies) != 3 {
		t.Fatalf("shipper policies duplicated or missing: %v", policies)
	}
}

func TestGrantAndRevokeRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("shipper", "/api/v1/shipments/:id/reopen", "post"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	allow, err := svc.EnforceRole("Shipper", "/api/v1/shipments/9/reopen", "POST")
	if err != nil || !allow {
		t.Fatalf("expected granted policy to allow, allow=%v err=%v", allow, err)
	}
	if err := svc.RevokeRolePolicy("shipper", "/shipments/:id/reopen", "POST"); err != nil {
		t.Fatalf("revoke role policy failed: %v", err)
	}
	allow, err = svc.EnforceRole("Shipper", "/api/v1/shipments/9/reopen", "POST")
	if err != nil || allow {
		t.Fatalf("expected revoked policy to deny, allow=%v err=%v", allow, err)
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/cargo/:id", want: "/cargo/:id"},
		{in: "/cargo/:id", want: "/cargo/:id"},
		{in: "shipments", want: "/shipments"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestSubjectForRole(t *testing.T) {
	got, err := SubjectForRole(" Carrier ")
	if err != nil || got != "role:carrier" {
		t.Fatalf("unexpected subject %q err=%v", got, err)
	}
	if _, err := SubjectForRole(""); err == nil {
		t.Fatalf("empty role should fail")
	}
}
