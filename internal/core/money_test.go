package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"numeric text", "450.00", "450", false},
		{"padded text", " 12.5 ", "12.5", false},
		{"float", 300.0, "300", false},
		{"int", 25000, "25000", false},
		{"json number", json.Number("1200"), "1200", false},
		{"nil", nil, "0", false},
		{"empty text", "", "0", false},
		{"garbage", "abc", "", true},
		{"bool", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("CoerceAmount(%v) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CoerceAmount(%v) unexpected error: %v", tt.in, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("CoerceAmount(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"12.34", "12.34", false},
		{"12,34", "12.34", false},
		{"0", "0", false},
		{"-1", "", true},
		{"+1", "", true},
		{"", "", true},
		{"1.2.3", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNumberKeepsRawForm(t *testing.T) {
	var row struct {
		Amount Number `json:"amount"`
		Rate   Number `json:"rate"`
	}
	if err := json.Unmarshal([]byte(`{"amount":"450.00","rate":180}`), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := row.Amount.Raw().(string); !ok {
		t.Errorf("amount raw type = %T, want string", row.Amount.Raw())
	}
	if _, ok := row.Rate.Raw().(json.Number); !ok {
		t.Errorf("rate raw type = %T, want json.Number", row.Rate.Raw())
	}

	amount, err := row.Amount.Decimal()
	if err != nil || !amount.Equal(decimal.NewFromInt(450)) {
		t.Errorf("amount = %s, %v; want 450", amount, err)
	}

	out, err := json.Marshal(NumberOf(decimal.RequireFromString("12.50")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "12.5" {
		t.Errorf("marshal decimal = %s, want 12.5", out)
	}
}
