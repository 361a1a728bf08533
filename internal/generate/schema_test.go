package generate

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidateRequiredFields(t *testing.T) {
	s := Schema{Name: "offer", Required: []string{"valueProposition", "pricingTiers"}}

	obj, err := s.Validate(json.RawMessage(`{"valueProposition":"v","pricingTiers":[{"name":"Pro"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "v", obj["valueProposition"])

	_, err = s.Validate(json.RawMessage(`{"valueProposition":"v"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pricingTiers")
}

func TestSchemaValidateEmptyValues(t *testing.T) {
	s := Schema{Name: "x", Required: []string{"a"}}

	for _, raw := range []string{`{"a":""}`, `{"a":[]}`, `{"a":{}}`, `{"a":null}`} {
		_, err := s.Validate(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}

	// Zero and false are values, not absences.
	for _, raw := range []string{`{"a":0}`, `{"a":false}`} {
		_, err := s.Validate(json.RawMessage(raw))
		assert.NoError(t, err, raw)
	}
}

func TestSchemaValidateNotJSON(t *testing.T) {
	s := Schema{Name: "x"}
	_, err := s.Validate(json.RawMessage(`not json at all`))
	require.Error(t, err)
}

func TestSchemaValidateCheck(t *testing.T) {
	s := Schema{
		Name:     "split",
		Required: []string{"monthlySpend"},
		Check: func(obj map[string]any) error {
			if _, ok := obj["monthlySpend"].([]any); !ok {
				return fmt.Errorf("monthlySpend must be a list")
			}
			return nil
		},
	}
	_, err := s.Validate(json.RawMessage(`{"monthlySpend":"oops"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a list")

	_, err = s.Validate(json.RawMessage(`{"monthlySpend":[{"platform":"meta"}]}`))
	assert.NoError(t, err)
}
