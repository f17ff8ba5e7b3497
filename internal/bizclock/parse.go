package bizclock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LocalInputLayout is the datetime-local form used by the dashboard inputs.
const LocalInputLayout = "2006-01-02T15:04"

// ParseInstant accepts epoch milliseconds, RFC 3339, or a LocalInputLayout
// value read in the calendar's location.
func (c Calendar) ParseInstant(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("value is required")
	}
	if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(LocalInputLayout, trimmed, c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised instant %q", trimmed)
	}
	return t, nil
}
