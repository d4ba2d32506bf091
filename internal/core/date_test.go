package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-01-10", "2024-01-10", false},
		{"2024-01-10T08:30:00Z", "2024-01-10", false},
		{"2024-01-10 08:30:00", "2024-01-10", false},
		{"10/01/2024", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDateHelpers(t *testing.T) {
	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	today := Today(now)
	if today.String() != "2024-03-01" {
		t.Fatalf("Today = %s", today)
	}
	if got := today.AddDays(-1).String(); got != "2024-02-29" {
		t.Errorf("AddDays(-1) = %s, want 2024-02-29", got)
	}
	if !today.Same(MustParseDate("2024-03-01")) {
		t.Error("Same should compare calendar days")
	}
	if today.SameMonth(MustParseDate("2023-03-15")) {
		t.Error("SameMonth must check the year too")
	}
	if !MustParseDate("2024-01-09").Before(MustParseDate("2024-01-10")) {
		t.Error("Before should order days")
	}
}

func TestDateJSON(t *testing.T) {
	var e Expense
	if err := json.Unmarshal([]byte(`{"date":"2024-01-10"}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, err := json.Marshal(e.Date)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-01-10"` {
		t.Errorf("marshal = %s", b)
	}
	if err := json.Unmarshal([]byte(`{"date":"soon"}`), &e); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestDateValidate(t *testing.T) {
	if err := MustParseDate("2024-01-10").Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (Date{}).Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("zero Date Validate() = %v, want ErrInvalidDate", err)
	}

	e := Expense{Title: "Lunch", Category: Food}
	if err := e.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("Expense without date Validate() = %v, want ErrInvalidDate", err)
	}
}
