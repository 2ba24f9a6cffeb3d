package casbin

import (
	"context"
	"errors"
	"testing"

	"github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/tailor-ledger/internal/decisionmaker"
)

const (
	policyPath = "testdata/policy.csv"
)

// mockEnforcer is a mock implementation of the casbin.IEnforcer interface used for testing purposes.
type mockEnforcer struct {
	casbin.IEnforcer
	mock.Mock
}

func (e *mockEnforcer) LoadPolicy() error {
	args := e.Called()
	return args.Error(0)
}

func (e *mockEnforcer) Enforce(rvals ...any) (bool, error) {
	args := e.Called(rvals...)
	return args.Bool(0), args.Error(1)
}

type staticRoles map[string][]string

func (s staticRoles) GetRoles(_ context.Context, subject string) ([]string, error) {
	roles, ok := s[subject]
	if !ok {
		return nil, errors.New("unknown subject")
	}
	return roles, nil
}

func TestDecisionMaker_MakeDecision(t *testing.T) {
	request := &decisionmaker.DecisionRequest{
		Resource: "/orders",
		Action:   "get",
		Subject:  "user-1",
	}

	enforcer := new(mockEnforcer)
	enforcer.On("LoadPolicy").Return(nil)
	enforcer.On("Enforce", "viewer", request.Resource, request.Action).Return(false, nil)
	enforcer.On("Enforce", "owner", request.Resource, request.Action).Return(true, nil)

	decisionMaker := decisionMaker{
		enforcer:     enforcer,
		infoProvider: staticRoles{"user-1": {"viewer", "owner", "admin"}},
	}
	decision, err := decisionMaker.MakeDecision(context.TODO(), request)

	assert.True(t, decision)
	assert.NoError(t, err)
	enforcer.AssertNumberOfCalls(t, "LoadPolicy", 1)
	enforcer.AssertNumberOfCalls(t, "Enforce", 2)
}

func TestDecisionMaker_MakeDecisionErrors(t *testing.T) {
	cases := map[string]struct {
		loadErr       error
		subject       string
		expectedError string
	}{
		"should report policy load failures": {
			loadErr:       errors.New("db down"),
			subject:       "user-1",
			expectedError: "failed to load policy: db down",
		},
		"should report role lookup failures": {
			subject:       "stranger",
			expectedError: "failed to get roles: unknown subject",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			enforcer := new(mockEnforcer)
			enforcer.On("LoadPolicy").Return(tc.loadErr)

			d := decisionMaker{enforcer: enforcer, infoProvider: staticRoles{"user-1": {"owner"}}}
			decision, err := d.MakeDecision(context.TODO(), &decisionmaker.DecisionRequest{Subject: tc.subject})

			assert.False(t, decision)
			assert.EqualError(t, err, tc.expectedError)
			enforcer.AssertNotCalled(t, "Enforce", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestNewDecisionMaker(t *testing.T) {
	roles := staticRoles{
		"owner-1":  {"owner"},
		"viewer-1": {"viewer"},
		"admin-1":  {"admin"},
	}

	d, err := NewDecisionMaker(Model, fileadapter.NewAdapter(policyPath), roles, nil)
	require.NoError(t, err)

	cases := map[string]struct {
		request        *decisionmaker.DecisionRequest
		expectDecision bool
	}{
		"owner toggles": {
			request:        &decisionmaker.DecisionRequest{Subject: "owner-1", Resource: "/orders/abc/toggle", Action: "post"},
			expectDecision: true,
		},
		"owner cannot reconcile": {
			request:        &decisionmaker.DecisionRequest{Subject: "owner-1", Resource: "/admin/reconcile", Action: "post"},
			expectDecision: false,
		},
		"viewer reads": {
			request:        &decisionmaker.DecisionRequest{Subject: "viewer-1", Resource: "/export/csv", Action: "get"},
			expectDecision: true,
		},
		"viewer cannot delete": {
			request:        &decisionmaker.DecisionRequest{Subject: "viewer-1", Resource: "/orders/abc", Action: "delete"},
			expectDecision: false,
		},
		"admin reconciles": {
			request:        &decisionmaker.DecisionRequest{Subject: "admin-1", Resource: "/admin/reconcile", Action: "post"},
			expectDecision: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			decision, err := d.MakeDecision(context.TODO(), tc.request)
			assert.NoError(t, err)
			assert.Equal(t, tc.expectDecision, decision)
		})
	}
}
