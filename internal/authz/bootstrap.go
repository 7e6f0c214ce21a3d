package authz

import "fmt"

// RoleSeed 预置角色
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
// member 为登录用户公共权限，资源归属由服务层再校验
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "member",
			Policies: []Policy{
				{Object: "/auth/me", Action: "GET"},
				{Object: "/cargo", Action: "GET"},
				{Object: "/cargo/:id", Action: "GET"},
				{Object: "/cargo/:id/compatible-vehicles", Action: "GET"},
				{Object: "/vehicles", Action: "GET"},
				{Object: "/vehicles/:id", Action: "GET"},
				{Object: "/matching/assign", Action: "POST"},
				{Object: "/shipments", Action: "GET"},
				{Object: "/shipments/:id", Action: "GET"},
				{Object: "/shipments/:id", Action: "PUT"},
				{Object: "/shipments/:id/realtime", Action: "GET"},
				{Object: "/iot/readings/:shipment_id", Action: "GET"},
				{Object: "/iot/readings/:shipment_id/latest", Action: "GET"},
				{Object: "/alerts", Action: "GET"},
				{Object: "/alerts/:id", Action: "GET"},
				{Object: "/alerts/:id", Action: "DELETE"},
				{Object: "/alerts/:id/read", Action: "PUT"},
			},
		},
		{
			Role:     "shipper",
			Inherits: []string{"member"},
			Policies: []Policy{
				{Object: "/cargo", Action: "POST"},
				{Object: "/cargo/:id", Action: "PUT"},
				{Object: "/cargo/:id", Action: "DELETE"},
			},
		},
		{
			Role:     "carrier",
			Inherits: []string{"member"},
			Policies: []Policy{
				{Object: "/vehicles", Action: "POST"},
				{Object: "/vehicles/:id", Action: "PUT"},
				{Object: "/vehicles/:id", Action: "DELETE"},
				{Object: "/iot/readings", Action: "POST"},
				{Object: "/iot/readings/batch", Action: "POST"},
				{Object: "/iot/simulate/:shipment_id", Action: "POST"},
			},
		},
		{
			Role: "admin",
			Policies: []Policy{
				{Object: "/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色矩阵，重复执行不产生重复策略
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := SubjectForRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := SubjectForRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddGroupingPolicy(role, parentRole); err != nil {
				return fmt.Errorf("link %s to %s failed: %w", role, parentRole, err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("seed %s policy failed: %w", role, err)
			}
		}
	}
	return nil
}
