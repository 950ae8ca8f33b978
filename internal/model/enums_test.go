package model

import (
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"", PriorityNormal, false},
		{"Important", PriorityImportant, false},
		{" 2 ", PriorityUrgent, false},
		{"3", 0, true},
		{"high", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePriority(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestParseRecurrenceKind(t *testing.T) {
	tests := []struct {
		in      string
		want    RecurrenceKind
		wantErr bool
	}{
		{"", RecurNone, false},
		{"daily", RecurDaily, false},
		{"Weekdays", RecurWeekday, false},
		{"monthly", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRecurrenceKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseRecurrenceKind(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestDateRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	day, err := ParseDate("2026-10-14", loc)
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if day.Location() != loc || day.Hour() != 0 {
		t.Errorf("ParseDate() = %v, want local midnight", day)
	}
	late := time.Date(2026, 10, 14, 23, 30, 0, 0, loc)
	if got := FormatDate(late); got != "2026-10-14" {
		t.Errorf("FormatDate() = %q, want the local calendar day", got)
	}
	if _, err := ParseDate("14/10/2026", loc); err == nil {
		t.Error("ParseDate() accepted a foreign layout")
	}
}
