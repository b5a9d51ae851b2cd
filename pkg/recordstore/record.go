package recordstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a loosely typed record as returned by the store. Relation fields
// requested through expand are nested under the "expand" key.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the field as a string; numbers are formatted, nil is "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// FirstString returns the first non-blank value among keys.
func (r Record) FirstString(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(r.String(key)); v != "" {
			return v
		}
	}
	return ""
}

// Bool returns the field as a bool and whether it was present.
func (r Record) Bool(key string) (bool, bool) {
	switch v := r[key].(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(v)
		return parsed, err == nil
	}
	return false, false
}

// Int returns the field as an int and whether it held a number.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		return parsed, err == nil
	}
	return 0, false
}

// Float returns the field as a float64 and whether it held a number.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return parsed, err == nil
	}
	return 0, false
}

// Expanded returns the expanded single relation stored under key, if any.
func (r Record) Expanded(key string) (Record, bool) {
	expand, ok := r["expand"].(map[string]any)
	if !ok {
		return nil, false
	}
	rel, ok := expand[key].(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(rel), true
}
