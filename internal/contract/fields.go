package contract

import (
	"fmt"
	"strings"
)

func getString(m map[string]interface{}, key string, nonEmpty bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required field")
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("has type %s, want string", jsonType(v))
	}
	s = strings.TrimSpace(s)
	if nonEmpty && s == "" {
		return "", fmt.Errorf("must not be empty")
	}
	return s, nil
}

func getNumber(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field")
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("has type %s, want number", jsonType(v))
	}
	return f, nil
}

func getBool(m map[string]interface{}, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, fmt.Errorf("missing required field")
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("has type %s, want boolean", jsonType(v))
	}
	return b, nil
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
