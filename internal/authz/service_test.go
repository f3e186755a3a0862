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
	return svc
}

func TestEnforceOperatorWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("desk", "/ops/orders/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetOperatorRoles("alice", []string{"desk"}); err != nil {
		t.Fatalf("set operator roles failed: %v", err)
	}

	allow, err := svc.EnforceOperator("alice", "/api/v1/ops/orders/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceOperator("alice", "/api/v1/ops/orders/42/transitions", "POST")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetOperatorRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if err := svc.SetOperatorRoles("bob", []string{RoleSupport}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetOperatorRoles("bob")
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:support" {
		t.Fatalf("roles want [role:support], got=%v", roles)
	}

	if err := svc.SetOperatorRoles("bob", []string{RoleFinance}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	allow, err := svc.EnforceOperator("bob", "/ops/orders/7/transitions", "POST")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}
	allow, err = svc.EnforceOperator("bob", "/ops/payments/9/refunds", "POST")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestBuiltinRoleMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复执行不报错
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles twice failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	want := map[string]bool{
		"role:auditor":    true,
		"role:support":    true,
		"role:finance":    true,
		"role:operations": true,
	}
	for _, role := range roles {
		delete(want, role)
	}
	if len(want) != 0 {
		t.Fatalf("builtin roles missing: %v", want)
	}

	for name, role := range map[string]string{
		"auditor": RoleAuditor,
		"support": RoleSupport,
		"finance": RoleFinance,
		"ops":     RoleOperations,
	} {
		if err := svc.SetOperatorRoles(name, []string{role}); err != nil {
			t.Fatalf("set roles for %s failed: %v", name, err)
		}
	}

	cases := []struct {
		operator string
		object   string
		action   string
		want     bool
	}{
		{"auditor", "/api/v1/ops/orders/1", "GET", true},
		{"auditor", "/api/v1/ops/orders/1/transitions", "POST", false},
		{"support", "/api/v1/ops/orders/1/transitions", "POST", true},
		{"support", "/api/v1/ops/payments/3/settle", "POST", false},
		{"finance", "/api/v1/ops/payments/3/settle", "POST", true},
		{"finance", "/api/v1/ops/customers/5/token", "POST", false},
		{"ops", "/api/v1/ops/jobs/reservation-cleanup", "POST", true},
		{"ops", "/api/v1/ops/payments/3/refunds", "POST", true},
		{"finance", "/api/v1/ops/jobs/reservation-cleanup", "POST", false},
		{"stranger", "/api/v1/ops/orders/1", "GET", false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceOperator(tc.operator, tc.object, tc.action)
		if err != nil {
			t.Fatalf("enforce %s %s %s failed: %v", tc.operator, tc.action, tc.object, err)
		}
		if allow != tc.want {
			t.Fatalf("enforce %s %s %s want %v got %v", tc.operator, tc.action, tc.object, tc.want, allow)
		}
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/ops/orders/:id", want: "/ops/orders/:id"},
		{in: "/ops/orders/:id", want: "/ops/orders/:id"},
		{in: "ops/orders", want: "/ops/orders"},
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
