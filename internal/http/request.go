package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"nomadfinance/internal/core"
)

// maxBodyBytes caps request bodies; records and settings are tiny.
const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// sanitizeInput removes control characters (except tab and newlines) and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type sessionRequest struct {
	InitData string `json:"init_data"`
	Password string `json:"password,omitempty"`
}

// amountInput holds an amount as the client sent it: a JSON number, or text
// typed into a form such as "12,50". It is parsed after decoding so a bad
// amount fails validation instead of the whole body.
type amountInput struct {
	raw string
}

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &a.raw)
	}
	if string(b) != "null" {
		a.raw = string(b)
	}
	return nil
}

func (a amountInput) Decimal() (decimal.Decimal, error) {
	return core.ParseAmount(a.raw)
}

// The request types shadow the record's amount field with amountInput.
type (
	expenseRequest struct {
		core.Expense
		Amount amountInput `json:"amount"`
	}

	incomeRequest struct {
		core.Income
		Amount amountInput `json:"amount"`
	}

	assetRequest struct {
		core.Asset
		Amount amountInput `json:"amount"`
	}
)

func (r expenseRequest) record() (core.Expense, error) {
	amount, err := r.Amount.Decimal()
	if err != nil {
		return core.Expense{}, err
	}
	e := r.Expense
	e.Amount = amount
	return sanitizeExpense(e), nil
}

func (r incomeRequest) record() (core.Income, error) {
	amount, err := r.Amount.Decimal()
	if err != nil {
		return core.Income{}, err
	}
	i := r.Income
	i.Amount = amount
	return sanitizeIncome(i), nil
}

func (r assetRequest) record() (core.Asset, error) {
	amount, err := r.Amount.Decimal()
	if err != nil {
		return core.Asset{}, err
	}
	a := r.Asset
	a.Amount = amount
	return sanitizeAsset(a), nil
}

func sanitizeExpense(e core.Expense) core.Expense {
	e.ID = ""
	e.Title = sanitizeInput(e.Title)
	e.Category = core.Category(sanitizeInput(string(e.Category)))
	e.Note = sanitizeInput(e.Note)
	return e
}

func sanitizeIncome(i core.Income) core.Income {
	i.ID = ""
	i.Source = sanitizeInput(i.Source)
	return i
}

func sanitizeAsset(a core.Asset) core.Asset {
	a.ID = ""
	a.Name = sanitizeInput(a.Name)
	return a
}

func sanitizePatch(p core.SettingsPatch) core.SettingsPatch {
	if p.UserName != nil {
		name := sanitizeInput(*p.UserName)
		p.UserName = &name
	}
	return p
}
