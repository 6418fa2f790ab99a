package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "agentconsent/pkg/domain-errors"
)

type sample struct {
	TargetEmail string `json:"target_email" validate:"required,email"`
	Scope       string `json:"scope" validate:"notblank"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=pending granted"`
}

func TestValidate_UsesWireNames(t *testing.T) {
	err := Validate(&sample{Scope: "x"})
	require.Error(t, err)
	assert.Equal(t, "target_email is required", err.Error())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = Validate(&sample{TargetEmail: "nope", Scope: "x"})
	assert.EqualError(t, err, "target_email must be a valid email")

	err = Validate(&sample{TargetEmail: "bob@example.com", Scope: "  "})
	assert.EqualError(t, err, "scope must not be blank")

	err = Validate(&sample{TargetEmail: "bob@example.com", Scope: "x", Status: "done"})
	assert.EqualError(t, err, "status must be one of [pending granted]")
}

func TestVar(t *testing.T) {
	assert.True(t, Var("+15551234567", "e164"))
	assert.False(t, Var("5551234567", "e164"))
}
