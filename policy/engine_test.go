package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	allowed, err := engine.Allow(ctx, Input{Operation: "essay.end", UserID: "u1", Role: 1})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = engine.Allow(ctx, Input{Operation: "essay.end", UserID: "u2", Role: 0})
	require.NoError(t, err)
	assert.False(t, allowed, "suspended accounts must not reach the model")
}

func TestCustomPolicyBlocksOperation(t *testing.T) {
	const content = `
package model_access

default decision = "allow"

decision = "block" {
	input.operation == "topic.validate"
	input.role < 2
}
`
	ctx := context.Background()
	engine, err := NewEngine(ctx, content)
	require.NoError(t, err)

	allowed, err := engine.Allow(ctx, Input{Operation: "topic.validate", Role: 1})
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = engine.Allow(ctx, Input{Operation: "essay.end", Role: 1})
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestBadPolicyFailsToPrepare(t *testing.T) {
	_, err := NewEngine(context.Background(), "this is not rego")
	assert.Error(t, err)
}
