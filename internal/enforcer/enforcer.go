package enforcer

import (
	"context"
	"strings"

	"github.com/CameronXie/tailor-ledger/internal/decisionmaker"
)

type Enforcer interface {
	Enforce(ctx context.Context, req *AccessRequest) (bool, error)
}

type AccessRequest struct {
	Subject  string
	Resource string
	Action   string
}

type enforcer struct {
	decisionMaker decisionmaker.DecisionMaker
}

// Enforce lowercases resource and action before asking the decision maker.
// The subject is a user id and is passed through unchanged.
func (e *enforcer) Enforce(ctx context.Context, req *AccessRequest) (bool, error) {
	return e.decisionMaker.MakeDecision(
		ctx,
		&decisionmaker.DecisionRequest{
			Subject:  req.Subject,
			Resource: strings.TrimSuffix(strings.ToLower(req.Resource), "/"),
			Action:   strings.ToLower(req.Action),
		},
	)
}

func NewEnforcer(decisionMaker decisionmaker.DecisionMaker) Enforcer {
	return &enforcer{decisionMaker: decisionMaker}
}
