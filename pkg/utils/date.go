package utils

import (
	"fmt"
	"time"
)

// PrettyDate renders t in UTC as "02 Jan 2006 - 15:04 UTC".
func PrettyDate(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%02d %s %d - %02d:%02d UTC",
		t.Day(),
		t.Month().String()[:3],
		t.Year(),
		t.Hour(),
		t.Minute(),
	)
}

// ParseDate accepts RFC3339 timestamps or plain YYYY-MM-DD dates, always returning UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", s)
}
