package shared

import (
	"net/http"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD and returns UTC.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), nil
	}
	return time.Parse(DateLayout, value)
}

// QueryDate parses a date query parameter into v. Absent parameters yield nil.
func QueryDate(r *http.Request, v *Validator, key string) *time.Time {
	return v.OptionalDate(key, r.URL.Query().Get(key))
}
