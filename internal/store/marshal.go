package store

import (
	"fmt"

	"github.com/doox-on/CS4220-NORP/internal/ir"
)

// marshalConfig converts a run's configuration to canonical JSON TEXT so two
// runs with the same settings store identical bytes.
func marshalConfig(config map[string]any) (string, error) {
	if len(config) == 0 {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(config)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// unmarshalConfig parses stored config TEXT. Numbers decode as json.Number.
func unmarshalConfig(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	v, err := ir.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	m, err := ir.AsObject(v)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}
