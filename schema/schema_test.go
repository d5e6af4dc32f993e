package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleParams struct {
	Name  string `json:"name" jsonschema:"required"`
	Count int    `json:"count"`
}

func TestReflectProducesObjectSchema(t *testing.T) {
	s := Reflect((*sampleParams)(nil))
	require.NotNil(t, s)
	assert.Equal(t, "object", s.Type)
}

func TestReflectCachesByType(t *testing.T) {
	a := Reflect((*sampleParams)(nil))
	b := Reflect((*sampleParams)(nil))
	assert.Same(t, a, b, "repeated Reflect calls for the same type should return the cached document")
}

func TestValidatorAcceptsMatchingPayload(t *testing.T) {
	v := NewValidator()
	s := Reflect((*sampleParams)(nil))
	err := v.Validate(s, json.RawMessage(`{"name":"x","count":1}`))
	assert.NoError(t, err)
}

func TestValidatorRejectsMissingRequiredField(t *testing.T) {
	v := NewValidator()
	s := Reflect((*sampleParams)(nil))
	err := v.Validate(s, json.RawMessage(`{"count":1}`))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Violations)
}

func TestValidationErrorMessageCountsExtraViolations(t *testing.T) {
	err := &ValidationError{Violations: []string{"a", "b", "c"}}
	assert.Equal(t, "a (+2 more)", err.Error())
}
