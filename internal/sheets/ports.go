// Package sheets turns record events into spreadsheet rows and defines the
// exporter port the worker writes them through.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nomadfinance/internal/amqp"
	"nomadfinance/internal/core"
	"nomadfinance/internal/remote"
)

// Exporter appends rows to the export target and returns a reference to the
// written range.
type Exporter interface {
	AppendRows(ctx context.Context, rows []Row) (ref string, err error)
}

// Header is the first row of the export sheet.
var Header = []any{"Timestamp", "Action", "Collection", "User", "Record", "Date", "Label", "Amount", "Kind", "Detail"}

// Row is one exported change. Label, Kind and Detail depend on the
// collection: title/category/frequency for expenses, source/type for incomes,
// name/type/currency for assets.
type Row struct {
	Timestamp  time.Time
	Action     amqp.Action
	Collection string
	UserID     string
	RecordID   string
	Date       string
	Label      string
	Amount     string
	Kind       string
	Detail     string
}

// Values renders the row in Header order.
func (r Row) Values() []any {
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		string(r.Action),
		r.Collection,
		r.UserID,
		r.RecordID,
		r.Date,
		r.Label,
		r.Amount,
		r.Kind,
		r.Detail,
	}
}

// RowFromEvent flattens an event. Deletions carry identifiers only.
func RowFromEvent(ev *amqp.RecordEvent) (Row, error) {
	row := Row{
		Timestamp:  ev.Timestamp,
		Action:     ev.Action,
		Collection: ev.Collection,
		UserID:     ev.UserID,
		RecordID:   ev.RecordID,
	}
	if ev.Action != amqp.ActionCreated || len(ev.Record) == 0 {
		return row, nil
	}

	switch ev.Collection {
	case remote.CollectionExpenses:
		var r remote.ExpenseRow
		if err := json.Unmarshal(ev.Record, &r); err != nil {
			return Row{}, fmt.Errorf("decode expense %s: %w", ev.RecordID, err)
		}
		row.Date, row.Label, row.Kind, row.Detail = r.Date, r.Title, r.Category, r.Frequency
		row.Amount = amountText(r.Amount)
	case remote.CollectionIncomes:
		var r remote.IncomeRow
		if err := json.Unmarshal(ev.Record, &r); err != nil {
			return Row{}, fmt.Errorf("decode income %s: %w", ev.RecordID, err)
		}
		row.Date, row.Label, row.Kind = r.Date, r.Source, r.Type
		row.Amount = amountText(r.Amount)
	case remote.CollectionAssets:
		var r remote.AssetRow
		if err := json.Unmarshal(ev.Record, &r); err != nil {
			return Row{}, fmt.Errorf("decode asset %s: %w", ev.RecordID, err)
		}
		row.Label, row.Kind, row.Detail = r.Name, r.Type, r.Currency
		row.Amount = amountText(r.Amount)
	default:
		return Row{}, fmt.Errorf("unsupported collection %q", ev.Collection)
	}
	return row, nil
}

func amountText(n core.Number) string {
	if d, err := n.Decimal(); err == nil {
		return d.StringFixed(2)
	}
	return fmt.Sprint(n.Raw())
}
