package opa

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/CameronXie/tailor-ledger/internal/decisionmaker"
	"github.com/CameronXie/tailor-ledger/internal/infoprovider"
	"github.com/CameronXie/tailor-ledger/internal/policyretriever"
)

const (
	moduleName = "decisionmaker"
)

type decisionMaker struct {
	policyRetriever policyretriever.PolicyRetriever
	infoProvider    infoprovider.InfoProvider
	query           string
}

// MakeDecision evaluates the role policy for the subject's roles.
func (d *decisionMaker) MakeDecision(ctx context.Context, req *decisionmaker.DecisionRequest) (bool, error) {
	policy, err := d.policyRetriever.GetPolicy()
	if err != nil {
		return false, fmt.Errorf("failed to get policy: %w", err)
	}

	query, err := rego.New(rego.Module(moduleName, policy), rego.Query(d.query)).PrepareForEval(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to prepare query: %w", err)
	}

	roles, err := d.infoProvider.GetRoles(ctx, req.Subject)
	if err != nil {
		return false, fmt.Errorf("failed to get roles: %w", err)
	}

	result, err := query.Eval(ctx, rego.EvalInput(map[string]any{
		"roles":    roles,
		"action":   req.Action,
		"resource": req.Resource,
	}))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate query: %w", err)
	}

	if len(result) == 0 || len(result[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := result[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("query %s returned %T, expected bool", d.query, result[0].Expressions[0].Value)
	}

	return allowed, nil
}

func NewDecisionMaker(
	policyRetriever policyretriever.PolicyRetriever,
	infoProvider infoprovider.InfoProvider,
	query string,
) decisionmaker.DecisionMaker {
	return &decisionMaker{
		policyRetriever: policyRetriever,
		infoProvider:    infoProvider,
		query:           query,
	}
}
