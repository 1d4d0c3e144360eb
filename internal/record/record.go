package record

import (
	"strconv"
	"time"
)

// Record is one untyped document as returned by the store. The store does not
// enforce a schema, so every field read goes through the defensive accessors
// below rather than direct type assertions.
type Record map[string]any

// Str returns the string value for key, or "" when missing or not a string.
func (r Record) Str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Num returns the numeric value for key as float64. Numbers stored as
// strings are parsed; anything else defaults to 0.
func (r Record) Num(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

// Int64 returns the value for key as int64, truncating floats, or 0.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// Bool returns the boolean value for key, or false.
func (r Record) Bool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// Time parses the value for key as an RFC3339 timestamp. Unparsable or
// missing values return the zero time, which sorts as earliest.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
