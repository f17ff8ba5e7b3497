package bizclock

import (
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	mexico, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	cal := NewCalendar(mexico)
	want := time.Date(2024, time.January, 5, 22, 0, 0, 0, time.UTC)

	tests := []struct {
		in string
	}{
		{"1704492000000"},
		{"2024-01-05T22:00:00Z"},
		{"2024-01-05T16:00:00-06:00"},
		{" 2024-01-05T16:00 "},
	}
	for _, tc := range tests {
		got, err := cal.ParseInstant(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q: expected %s got %s", tc.in, want, got)
		}
	}

	for _, bad := range []string{"", "   ", "tomorrow", "05/01/2024 16:00"} {
		if _, err := cal.ParseInstant(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
