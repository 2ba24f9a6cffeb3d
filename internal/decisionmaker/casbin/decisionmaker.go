package casbin

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"

	"github.com/CameronXie/tailor-ledger/internal/decisionmaker"
	"github.com/CameronXie/tailor-ledger/internal/infoprovider"
)

// Model matches role policies on path prefixes. Roles come from the info
// provider, so the model has no grouping section.
const Model = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

type decisionMaker struct {
	enforcer     casbin.IEnforcer
	infoProvider infoprovider.InfoProvider
}

// MakeDecision reloads the policy and allows the request when any of the
// subject's roles is allowed.
func (d *decisionMaker) MakeDecision(ctx context.Context, req *decisionmaker.DecisionRequest) (bool, error) {
	if err := d.enforcer.LoadPolicy(); err != nil {
		return false, fmt.Errorf("failed to load policy: %w", err)
	}

	roles, err := d.infoProvider.GetRoles(ctx, req.Subject)
	if err != nil {
		return false, fmt.Errorf("failed to get roles: %w", err)
	}

	for _, role := range roles {
		ok, err := d.enforcer.Enforce(role, req.Resource, req.Action)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// NewDecisionMaker builds a casbin enforcer over policyRepo. Seed rules are
// added when the store holds none of them yet.
func NewDecisionMaker(
	config string,
	policyRepo persist.Adapter,
	infoProvider infoprovider.InfoProvider,
	seed [][]string,
) (decisionmaker.DecisionMaker, error) {
	m, err := model.NewModelFromString(config)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, policyRepo)
	if err != nil {
		return nil, err
	}

	if len(seed) > 0 {
		if _, err := enforcer.AddPolicies(seed); err != nil {
			return nil, fmt.Errorf("failed to seed policies: %w", err)
		}
	}

	return &decisionMaker{enforcer: enforcer, infoProvider: infoProvider}, nil
}
