package authz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix = "/api/v1"
	ruleTable   = "casbin_rule"
	rolePrefix  = "role:"
)

// 主体为 role:<name>，资源为去掉 /api/v1 前缀的 gin 路由模板
const roleModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var errUnavailable = fmt.Errorf("authz service unavailable")

// Policy 角色策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 角色路由授权
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务，策略持久化在 casbin_rule 表
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", ruleTable)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(roleModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return errUnavailable
	}
	return nil
}

// EnforceRole 判定账号角色（Admin/Shipper/Carrier）能否访问路由
func (s *Service) EnforceRole(role, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	subject, err := SubjectForRole(role)
	if err != nil {
		return false, err
	}
	return s.enforcer.Enforce(subject, NormalizeObject(obj), NormalizeAction(act))
}

// ListRoles 列出出现在策略或继承关系中的角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	policies, err := s.enforcer.GetFilteredPolicy(0)
	if err != nil {
		return nil, fmt.Errorf("list policies failed: %w", err)
	}
	links, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("list role links failed: %w", err)
	}
	set := map[string]struct{}{}
	collect := func(names ...string) {
		for _, name := range names {
			if strings.HasPrefix(name, rolePrefix) {
				set[name] = struct{}{}
			}
		}
	}
	for _, rule := range policies {
		if len(rule) > 0 {
			collect(rule[0])
		}
	}
	for _, rule := range links {
		collect(rule...)
	}
	roles := make([]string, 0, len(set))
	for role := range set {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles, nil
}

// GrantRolePolicy 为角色追加一条路由权限，已存在时不报错
func (s *Service) GrantRolePolicy(role, object, action string) error {
	sub, obj, act, err := s.rolePolicy(role, object, action)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(sub, obj, act); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// RevokeRolePolicy 撤销角色的一条路由权限
func (s *Service) RevokeRolePolicy(role, object, action string) error {
	sub, obj, act, err := s.rolePolicy(role, object, action)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.RemovePolicy(sub, obj, act); err != nil {
		return fmt.Errorf("revoke policy failed: %w", err)
	}
	return nil
}

// GetRolePolicies 角色直接持有的策略（不含继承）
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sub, err := SubjectForRole(role)
	if err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, sub)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{Subject: rule[0], Object: rule[1], Action: rule[2]})
	}
	return policies, nil
}

func (s *Service) rolePolicy(role, object, action string) (string, string, string, error) {
	if err := s.ready(); err != nil {
		return "", "", "", err
	}
	sub, err := SubjectForRole(role)
	if err != nil {
		return "", "", "", err
	}
	act := NormalizeAction(action)
	if act == "" {
		return "", "", "", fmt.Errorf("action is required")
	}
	return sub, NormalizeObject(object), act, nil
}

// SubjectForRole 账号角色映射为授权主体，如 Carrier -> role:carrier
func SubjectForRole(role string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(role))
	name = strings.TrimPrefix(name, rolePrefix)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		return "", fmt.Errorf("role is required")
	}
	return rolePrefix + name, nil
}

// NormalizeObject 统一授权资源路径
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return normalized[len(apiV1Prefix):]
	}
	return normalized
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
