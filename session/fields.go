package session

import (
	"encoding/base64"
	"fmt"
)

// Response bodies arrive as generic JSON objects; these helpers pull
// typed fields out without panicking on absent or mistyped values.

func stringField(data map[string]any, key string) string {
	if value, ok := data[key].(string); ok {
		return value
	}
	return ""
}

func intField(data map[string]any, key string) int {
	switch value := data[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	}
	return 0
}

func stringsField(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if value, ok := item.(string); ok {
			values = append(values, value)
		}
	}
	return values
}

func base64Field(data map[string]any, key string) ([]byte, error) {
	raw := stringField(data, key)
	if raw == "" {
		return nil, fmt.Errorf("session: response field %q is missing", key)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("session: response field %q is not valid base64: %w", key, err)
	}
	return decoded, nil
}

func bodyCode(data map[string]any) int {
	return intField(data, "Code")
}
