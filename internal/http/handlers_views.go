package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"nomadfinance/internal/core"
	"nomadfinance/internal/views"
)

type categoryOption struct {
	Label string        `json:"label"`
	Value core.Category `json:"value"`
	Icon  string        `json:"icon"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	opts := core.Categories()
	out := make([]categoryOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, categoryOption{Label: o.Label, Value: o.Value, Icon: views.CategoryIcon(o.Value)})
	}
	NewResponse().JSON(out).Write(w)
}

type expensesView struct {
	Days            []views.DayGroup `json:"days"`
	MonthTotal      decimal.Decimal  `json:"monthTotal"`
	MonthTotalLabel string           `json:"monthTotalLabel"`
	Upcoming        []views.DueItem  `json:"upcoming,omitempty"`
}

func (s *Server) handleExpensesView(w http.ResponseWriter, r *http.Request) {
	snap := storeFrom(r.Context()).Snapshot()
	today := core.Today(s.now())
	expenses := snap.ExpenseRecords()

	total := views.MonthTotal(expenses, today)
	v := expensesView{
		Days:            views.GroupByDay(expenses, today),
		MonthTotal:      total,
		MonthTotalLabel: views.FormatAmount(total, string(core.ETB)),
	}
	if v.Days == nil {
		v.Days = []views.DayGroup{}
	}
	if snap.Settings.RecurringEnabled {
		v.Upcoming = views.Upcoming(expenses, today)
	}
	NewResponse().JSON(v).Write(w)
}

func (s *Server) handleReportsView(w http.ResponseWriter, r *http.Request) {
	p, err := views.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	snap := storeFrom(r.Context()).Snapshot()
	NewResponse().JSON(views.BuildReport(snap.ExpenseRecords(), p, core.Today(s.now()))).Write(w)
}

func (s *Server) handleOverviewView(w http.ResponseWriter, r *http.Request) {
	snap := storeFrom(r.Context()).Snapshot()
	o := views.BuildOverview(snap.ExpenseRecords(), snap.IncomeRecords(), snap.AssetRecords(), snap.Settings, core.Today(s.now()))
	NewResponse().JSON(o).Write(w)
}
