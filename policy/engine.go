// Package policy decides which users may reach the model-invoking
// operations. Decisions are evaluated with OPA against a rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.model_access.decision"),
		rego.Module("model_access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input describes one model-invoking request for evaluation.
type Input struct {
	Operation string `json:"operation"`
	UserID    string `json:"user_id"`
	Role      int    `json:"role"`
}

// Allow evaluates the model-access policy for one request. The policy
// returns "allow" or "block"; anything else is treated as allow since the
// policy defines its own default.
func (e *Engine) Allow(ctx context.Context, input Input) (bool, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return true, nil
	}
	if decision, ok := results[0].Expressions[0].Value.(string); ok {
		return decision != "block", nil
	}
	return true, nil
}

// DefaultPolicy is the default policy content: everyone may use the model
// except suspended accounts (role 0 is unconfirmed/suspended).
const DefaultPolicy = `
package model_access

default decision = "allow"

decision = "block" {
	input.role == 0
}
`
