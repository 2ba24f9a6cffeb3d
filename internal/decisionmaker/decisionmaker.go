package decisionmaker

import "context"

// DecisionRequest asks whether Subject, a user id, may perform Action on
// Resource, a path below /api/v1 or a capability path.
type DecisionRequest struct {
	Subject  string
	Resource string
	Action   string
}

type DecisionMaker interface {
	MakeDecision(ctx context.Context, req *DecisionRequest) (bool, error)
}
