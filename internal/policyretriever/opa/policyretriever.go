package opa

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/CameronXie/tailor-ledger/internal/policyretriever"
)

// DefaultQuery is the rule the bundled policy decides with.
const DefaultQuery = "data.rbac.allow"

//go:embed rbac.rego
var defaultPolicy string

type embeddedPolicyRetriever struct{}

// GetPolicy returns the role policy compiled into the binary.
func (embeddedPolicyRetriever) GetPolicy() (string, error) {
	return defaultPolicy, nil
}

func NewEmbeddedPolicyRetriever() policyretriever.PolicyRetriever {
	return embeddedPolicyRetriever{}
}

type filePolicyRetriever struct {
	path string
}

// GetPolicy re-reads the file on every call so edits apply without a restart.
func (p *filePolicyRetriever) GetPolicy() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("read policy %s: %w", p.path, err)
	}

	return string(data), nil
}

func NewFilePolicyRetriever(path string) policyretriever.PolicyRetriever {
	return &filePolicyRetriever{path: path}
}
