// internal/loans/gateway_test.go
package loans

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGatewayPassesRemoteVerdictThrough(t *testing.T) {
	g := NewGateway(validatorFunc(approve), validatorFunc(reject), FailOpen, discardLogger())

	assert.True(t, g.ValidateUser(context.Background(), uuid.New()))
	assert.False(t, g.ValidateBook(context.Background(), uuid.New()),
		"an explicit remote rejection is never overridden by policy")
}

func TestGatewayFailOpen(t *testing.T) {
	g := NewGateway(validatorFunc(unreachable), validatorFunc(unreachable), FailOpen, discardLogger())

	assert.True(t, g.ValidateUser(context.Background(), uuid.New()))
	assert.True(t, g.ValidateBook(context.Background(), uuid.New()))
}

func TestGatewayFailClosed(t *testing.T) {
	g := NewGateway(validatorFunc(unreachable), validatorFunc(unreachable), FailClosed, discardLogger())

	assert.False(t, g.ValidateUser(context.Background(), uuid.New()))
	assert.False(t, g.ValidateBook(context.Background(), uuid.New()))
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, FailOpen, ParsePolicy(""))
	assert.Equal(t, FailOpen, ParsePolicy("bogus"))
	assert.Equal(t, FailOpen, ParsePolicy("fail-open"))
	assert.Equal(t, FailClosed, ParsePolicy("fail-closed"))
}
