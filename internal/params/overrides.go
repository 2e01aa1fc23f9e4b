package params

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/kycstack/internal/services"
)

// ParseOverride parses a KEY=VALUE flag value.
func ParseOverride(raw string) (services.Override, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return services.Override{}, fmt.Errorf("invalid parameter %q (expected KEY=VALUE)", raw)
	}
	return services.Override{Key: key, Value: value}, nil
}

// ParseOverrides parses every KEY=VALUE value in order.
func ParseOverrides(raw []string) ([]services.Override, error) {
	out := make([]services.Override, 0, len(raw))
	for _, r := range raw {
		o, err := ParseOverride(r)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadOverridesFile reads a YAML mapping of parameter keys to scalar values. Document order is
// kept so later keys override earlier ones the same way repeated flags do.
func LoadOverridesFile(path string) ([]services.Override, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameters file: %w", err)
	}
	return DecodeOverrides(raw)
}

// DecodeOverrides decodes a YAML mapping into overrides.
func DecodeOverrides(raw []byte) ([]services.Override, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse parameters file: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parameters file must be a mapping of KEY: VALUE")
	}
	out := make([]services.Override, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parameter %q: value must be a scalar (line %d)", k.Value, v.Line)
		}
		key := strings.TrimSpace(k.Value)
		if key == "" {
			return nil, fmt.Errorf("empty parameter key (line %d)", k.Line)
		}
		out = append(out, services.Override{Key: key, Value: v.Value})
	}
	return out, nil
}
