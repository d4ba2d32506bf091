package sheets

import (
	"encoding/json"
	"testing"
	"time"

	"nomadfinance/internal/amqp"
)

func TestRowFromEvent(t *testing.T) {
	ts := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		event   amqp.RecordEvent
		want    Row
		wantErr bool
	}{
		{
			name: "created expense with text amount",
			event: amqp.RecordEvent{
				Action: amqp.ActionCreated, Collection: "expenses", UserID: "42", RecordID: "e-1", Timestamp: ts,
				Record: json.RawMessage(`{"id":"e-1","title":"Rent","amount":"450","category":"Rent","date":"2024-01-01","is_recurring":true,"frequency":"Monthly"}`),
			},
			want: Row{Timestamp: ts, Action: amqp.ActionCreated, Collection: "expenses", UserID: "42", RecordID: "e-1",
				Date: "2024-01-01", Label: "Rent", Amount: "450.00", Kind: "Rent", Detail: "Monthly"},
		},
		{
			name: "created income",
			event: amqp.RecordEvent{
				Action: amqp.ActionCreated, Collection: "incomes", UserID: "42", RecordID: "i-1", Timestamp: ts,
				Record: json.RawMessage(`{"amount":2500.5,"source":"Client","date":"2024-01-02","type":"Stable"}`),
			},
			want: Row{Timestamp: ts, Action: amqp.ActionCreated, Collection: "incomes", UserID: "42", RecordID: "i-1",
				Date: "2024-01-02", Label: "Client", Amount: "2500.50", Kind: "Stable"},
		},
		{
			name: "created asset",
			event: amqp.RecordEvent{
				Action: amqp.ActionCreated, Collection: "assets", UserID: "42", RecordID: "a-1", Timestamp: ts,
				Record: json.RawMessage(`{"name":"Wallet","amount":25000,"type":"Cash","currency":"ETB"}`),
			},
			want: Row{Timestamp: ts, Action: amqp.ActionCreated, Collection: "assets", UserID: "42", RecordID: "a-1",
				Label: "Wallet", Amount: "25000.00", Kind: "Cash", Detail: "ETB"},
		},
		{
			name:  "deletion carries identifiers only",
			event: amqp.RecordEvent{Action: amqp.ActionDeleted, Collection: "expenses", UserID: "42", RecordID: "e-1", Timestamp: ts},
			want:  Row{Timestamp: ts, Action: amqp.ActionDeleted, Collection: "expenses", UserID: "42", RecordID: "e-1"},
		},
		{
			name: "unknown collection",
			event: amqp.RecordEvent{Action: amqp.ActionCreated, Collection: "settings", UserID: "42", RecordID: "s",
				Record: json.RawMessage(`{}`)},
			wantErr: true,
		},
		{
			name: "malformed record",
			event: amqp.RecordEvent{Action: amqp.ActionCreated, Collection: "expenses", UserID: "42", RecordID: "e",
				Record: json.RawMessage(`{"title":3}`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RowFromEvent(&tt.event)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RowFromEvent: %v", err)
			}
			if got != tt.want {
				t.Errorf("RowFromEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRowValuesMatchHeader(t *testing.T) {
	row := Row{Timestamp: time.Date(2024, 1, 10, 9, 0, 0, 0, time.FixedZone("EAT", 3*3600)), Action: amqp.ActionCreated}
	values := row.Values()
	if len(values) != len(Header) {
		t.Fatalf("len(values) = %d, want %d", len(values), len(Header))
	}
	if values[0] != "2024-01-10T06:00:00Z" {
		t.Errorf("timestamp = %v", values[0])
	}
}
