//go:build casbin

package main

import (
	"log/slog"

	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	_ "github.com/go-sql-driver/mysql"

	"github.com/CameronXie/tailor-ledger/internal/config"
	"github.com/CameronXie/tailor-ledger/internal/decisionmaker/casbin"
	"github.com/CameronXie/tailor-ledger/internal/enforcer"
	"github.com/CameronXie/tailor-ledger/internal/infoprovider"
)

// seedPolicies are written to a fresh MySQL policy table. They mirror
// configs/casbin_policy.csv.
var seedPolicies = [][]string{
	{"admin", "/*", "*"},
	{"owner", "/*", "get"},
	{"owner", "/orders", "post"},
	{"owner", "/orders/*", "put"},
	{"owner", "/orders/*", "delete"},
	{"owner", "/orders/*", "post"},
	{"owner", "/images", "post"},
	{"owner", "/import", "post"},
	{"owner", "/capabilities/*", "use"},
	{"viewer", "/*", "get"},
	{"viewer", "/capabilities/thumbnails", "use"},
}

// newEnforcer builds the casbin enforcer. Policies live in MySQL when a
// host is configured and in the CSV file otherwise.
func newEnforcer(cfg *config.Config, roles infoprovider.RoleRepository, logger *slog.Logger) (enforcer.Enforcer, error) {
	roleProvider := infoprovider.NewUserRoleProvider(roles)

	if cfg.MySQL.Host != "" {
		logger.Info("initializing enforcer with Casbin", "policy_store", "mysql", "host", cfg.MySQL.Host)

		adapter, err := gormadapter.NewAdapter("mysql", cfg.MySQL.DSN())
		if err != nil {
			return nil, err
		}

		decisionMaker, err := casbin.NewDecisionMaker(casbin.Model, adapter, roleProvider, seedPolicies)
		if err != nil {
			return nil, err
		}

		return enforcer.NewEnforcer(decisionMaker), nil
	}

	logger.Info("initializing enforcer with Casbin", "policy_store", "file", "path", cfg.Policy.CasbinPath)

	decisionMaker, err := casbin.NewDecisionMaker(casbin.Model, fileadapter.NewAdapter(cfg.Policy.CasbinPath), roleProvider, nil)
	if err != nil {
		return nil, err
	}

	return enforcer.NewEnforcer(decisionMaker), nil
}
