//go:build !casbin || opa

package main

import (
	"log/slog"

	"github.com/CameronXie/tailor-ledger/internal/config"
	"github.com/CameronXie/tailor-ledger/internal/enforcer"
	"github.com/CameronXie/tailor-ledger/internal/infoprovider"
	"github.com/CameronXie/tailor-ledger/internal/policyretriever"

	pdp "github.com/CameronXie/tailor-ledger/internal/decisionmaker/opa"
	prp "github.com/CameronXie/tailor-ledger/internal/policyretriever/opa"
)

// newEnforcer builds the OPA enforcer. The bundled rbac policy is used
// unless a rego file is configured.
func newEnforcer(cfg *config.Config, roles infoprovider.RoleRepository, logger *slog.Logger) (enforcer.Enforcer, error) {
	var policy policyretriever.PolicyRetriever
	if cfg.Policy.RegoPath != "" {
		logger.Info("initializing enforcer with OPA", "policy", cfg.Policy.RegoPath)
		policy = prp.NewFilePolicyRetriever(cfg.Policy.RegoPath)
	} else {
		logger.Info("initializing enforcer with OPA", "policy", "embedded")
		policy = prp.NewEmbeddedPolicyRetriever()
	}

	decisionMaker := pdp.NewDecisionMaker(policy, infoprovider.NewUserRoleProvider(roles), prp.DefaultQuery)

	return enforcer.NewEnforcer(decisionMaker), nil
}
