package hours

import (
	"testing"
	"time"
)

func TestDateHourString(t *testing.T) {
	dh := DateHour{Date: "2025-01-01", Hour: 5}
	expected := "2025-01-01 05"
	if s := dh.String(); s != expected {
		t.Errorf("String() expected %q, got %q", expected, s)
	}
}

func TestDateHourCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     DateHour
		expected int
	}{
		{"equal", DateHour{"2025-01-01", 5}, DateHour{"2025-01-01", 5}, 0},
		{"earlier date", DateHour{"2024-12-31", 23}, DateHour{"2025-01-01", 0}, -1},
		{"later hour", DateHour{"2025-01-01", 6}, DateHour{"2025-01-01", 5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.expected {
				t.Errorf("Compare() expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestDateHourIsZero(t *testing.T) {
	var dh DateHour
	if !dh.IsZero() {
		t.Errorf("expected a zero value DateHour to be zero")
	}
	dh = DateHour{Date: "2025-01-01", Hour: 0}
	if dh.IsZero() {
		t.Errorf("expected a DateHour with a date not to be zero")
	}
}

func TestFromTime(t *testing.T) {
	// 22:30 UTC is 00:30 the next day in Helsinki (UTC+2 in winter)
	tm := time.Date(2024, time.January, 1, 22, 30, 0, 0, time.UTC)
	dh := FromTime(tm)
	expected := DateHour{Date: "2024-01-02", Hour: 0}
	if dh != expected {
		t.Errorf("FromTime() expected %+v, got %+v", expected, dh)
	}

	var zero time.Time
	if !FromTime(zero).IsZero() {
		t.Errorf("FromTime() with zero time expected a zero DateHour")
	}
}

func TestFromDisplay(t *testing.T) {
	dh, err := FromDisplay("24.12.2023 18:00")
	if err != nil {
		t.Fatalf("FromDisplay() unexpected error: %v", err)
	}
	expected := DateHour{Date: "2023-12-24", Hour: 18}
	if dh != expected {
		t.Errorf("FromDisplay() expected %+v, got %+v", expected, dh)
	}

	if _, err := FromDisplay("2023-12-24 18:00"); err == nil {
		t.Errorf("FromDisplay() expected error for wrong layout")
	}
}

func TestNextDate(t *testing.T) {
	if got := NextDate("2024-02-28"); got != "2024-02-29" {
		t.Errorf("NextDate() expected 2024-02-29, got %q", got)
	}
	if got := NextDate("2023-12-31"); got != "2024-01-01" {
		t.Errorf("NextDate() expected 2024-01-01, got %q", got)
	}
}

func TestHoursInDate(t *testing.T) {
	tests := []struct {
		date     string
		expected int
	}{
		{"2024-01-15", 24},
		{"2024-03-31", 23}, // EET -> EEST
		{"2024-10-27", 25}, // EEST -> EET
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			if got := HoursInDate(tt.date); got != tt.expected {
				t.Errorf("HoursInDate(%s) expected %d, got %d", tt.date, tt.expected, got)
			}
		})
	}
}
