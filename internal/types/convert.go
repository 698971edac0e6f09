package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EnsureMap coerces a loosely typed value into a JSON object.
//
// Maps are returned as-is, strings and byte slices are decoded as JSON, and
// nil or blank input yields an empty map. Anything else, including JSON that
// is not an object, returns an empty map together with an error so callers
// can fall back to their own defaults.
func EnsureMap(v any) (map[string]any, error) {
	switch val := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return val, nil
	case string:
		return decodeObject([]byte(val))
	case []byte:
		return decodeObject(val)
	case json.RawMessage:
		return decodeObject(val)
	default:
		return map[string]any{}, fmt.Errorf("cannot convert %T to an object", v)
	}
}

func decodeObject(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}, fmt.Errorf("decode object: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// PrettyJSON renders v as two-space indented JSON without HTML escaping.
func PrettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// StringValue returns the trimmed string stored under key, or "".
func StringValue(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// IntValue reads a numeric value that may have been decoded as float64, int
// or a numeric string.
func IntValue(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// BoolValue reads a boolean that may have been emitted as a string.
func BoolValue(m map[string]any, key string) (bool, bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	default:
		return false, false
	}
}

// HasValue reports whether key holds anything other than nil or a blank
// string. The value's type is not considered.
func HasValue(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Truthy reports whether v is a non-empty value: nil, false, zero numbers,
// empty strings and empty lists or objects are false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case json.Number:
		return val.String() != "0"
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
