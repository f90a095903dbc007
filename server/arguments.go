package server

import (
	"encoding/json"
	"math"
	"strings"
)

// Arguments - Tool call arguments as decoded from the MCP request.
// Values of the wrong type are treated as absent.
type Arguments map[string]any

// String returns the trimmed string value of key, or "".
func (a Arguments) String(key string) string {
	s, _ := a[key].(string)
	return strings.TrimSpace(s)
}

// StringOr returns the string value of key, or def when it is absent or blank.
func (a Arguments) StringOr(key, def string) string {
	if s := a.String(key); s != "" {
		return s
	}
	return def
}

// OptionalString returns a pointer to the string value of key, or nil when it is absent or blank.
func (a Arguments) OptionalString(key string) *string {
	s := a.String(key)
	if s == "" {
		return nil
	}
	return &s
}

// Bool returns the boolean value of key, or def.
func (a Arguments) Bool(key string, def bool) bool {
	if b, ok := a[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the integer value of key, or def. JSON numbers arrive as float64.
// Values are clamped to the int32 range; NaN and infinities yield def.
func (a Arguments) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, v)))
	case int:
		return clampInt32(int64(v))
	case int64:
		return clampInt32(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return clampInt32(n)
		}
	}
	return def
}

func clampInt32(n int64) int {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int(n)
}

// Len returns the number of items in the array value of key, counting every item.
func (a Arguments) Len(key string) int {
	switch v := a[key].(type) {
	case []any:
		return len(v)
	case []string:
		return len(v)
	}
	return 0
}

// Strings returns the non-empty string items of the array value of key.
func (a Arguments) Strings(key string) []string {
	var out []string
	switch v := a[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// StringMap returns the string entries of the object value of key, or nil.
func (a Arguments) StringMap(key string) map[string]string {
	switch v := a[key].(type) {
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
		return out
	case map[string]string:
		return v
	}
	return nil
}
