package authz

import "fmt"

// 预置角色
const (
	RoleAuditor    = "auditor"
	RoleSupport    = "support"
	RoleFinance    = "finance"
	RoleOperations = "operations"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 运营接口角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleAuditor,
			Policies: []Policy{
				{Object: "/ops/*", Action: "GET"},
			},
		},
		{
			Role:     RoleSupport,
			Inherits: []string{RoleAuditor},
			Policies: []Policy{
				{Object: "/ops/orders/:id/transitions", Action: "POST"},
				{Object: "/ops/customers/:id/token", Action: "POST"},
			},
		},
		{
			Role:     RoleFinance,
			Inherits: []string{RoleAuditor},
			Policies: []Policy{
				{Object: "/ops/payments/:payment_id/settle", Action: "POST"},
				{Object: "/ops/payments/:payment_id/refunds", Action: "POST"},
			},
		},
		{
			Role:     RoleOperations,
			Inherits: []string{RoleSupport, RoleFinance},
			Policies: []Policy{
				{Object: "/ops/jobs/*", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
