package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
)

// CasbinService wraps a file-backed enforcer deciding which roles may enter
// which guarded path prefixes of the agent.
type CasbinService struct {
	E *casbin.Enforcer
}

// NewCasbinService loads the RBAC model and policy from disk.
func NewCasbinService(modelPath, policyPath string) (*CasbinService, error) {
	e, err := casbin.NewEnforcer(modelPath, policyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	return &CasbinService{E: e}, nil
}

// Allowed reports whether role may perform method on path. Enforcement
// errors deny: fail-closed like the rest of the auth path.
func (s *CasbinService) Allowed(role, path, method string) bool {
	ok, err := s.E.Enforce("role_"+role, path, method)
	return err == nil && ok
}
