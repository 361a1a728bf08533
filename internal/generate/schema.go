package generate

import (
	"encoding/json"
	"fmt"
)

// Schema describes the expected shape of a section's generated JSON.
// Required lists top-level keys that must be present and non-empty;
// Check, when set, runs structural validation over the decoded object.
type Schema struct {
	Name     string
	Required []string
	Check    func(obj map[string]any) error
}

// Validate decodes raw and verifies it against the schema. The decoded
// object is returned so callers do not unmarshal twice.
func (s Schema) Validate(raw json.RawMessage) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("schema %s: decode: %w", s.Name, err)
	}
	for _, key := range s.Required {
		v, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("schema %s: missing required field %q", s.Name, key)
		}
		if isEmptyValue(v) {
			return nil, fmt.Errorf("schema %s: required field %q is empty", s.Name, key)
		}
	}
	if s.Check != nil {
		if err := s.Check(obj); err != nil {
			return nil, fmt.Errorf("schema %s: %w", s.Name, err)
		}
	}
	return obj, nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
