package finance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"nomadfinance/internal/core"
	"nomadfinance/internal/remote"
	"nomadfinance/internal/storage/local"
)

var errBoom = errors.New("boom")

// fakeService wraps the in-memory store with switches for latency and failure.
type fakeService struct {
	*local.Store

	mu          sync.Mutex
	insertGate  chan struct{}
	insertErr   error
	deleteErr   error
	listGate    chan struct{}
	listStarted chan string
}

func newFake() *fakeService {
	return &fakeService{Store: local.New()}
}

func (f *fakeService) beforeInsert() error {
	f.mu.Lock()
	gate, err := f.insertGate, f.insertErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeService) InsertExpense(ctx context.Context, userID string, row remote.ExpenseRow) (remote.ExpenseRow, error) {
	if err := f.beforeInsert(); err != nil {
		return remote.ExpenseRow{}, err
	}
	return f.Store.InsertExpense(ctx, userID, row)
}

func (f *fakeService) InsertIncome(ctx context.Context, userID string, row remote.IncomeRow) (remote.IncomeRow, error) {
	if err := f.beforeInsert(); err != nil {
		return remote.IncomeRow{}, err
	}
	return f.Store.InsertIncome(ctx, userID, row)
}

func (f *fakeService) DeleteExpense(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.DeleteExpense(ctx, userID, id)
}

func (f *fakeService) ListExpenses(ctx context.Context, userID string) ([]remote.ExpenseRow, error) {
	f.mu.Lock()
	gate, started := f.listGate, f.listStarted
	f.mu.Unlock()
	rows, err := f.Store.ListExpenses(ctx, userID)
	if started != nil {
		started <- userID
	}
	if gate != nil {
		<-gate
	}
	return rows, err
}

type recorder struct {
	mu   sync.Mutex
	errs []*OpError
}

func (r *recorder) observe(_ context.Context, err *OpError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) all() []*OpError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*OpError(nil), r.errs...)
}

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, svc remote.DataService) (*Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(svc, WithErrorObserver(rec.observe), WithClock(func() time.Time { return testNow }))
	t.Cleanup(s.Wait)
	return s, rec
}

func ptr(s string) *string { return &s }

func lunch() core.Expense {
	return core.Expense{
		Title:    "Lunch",
		Amount:   decimal.NewFromInt(450),
		Category: core.Food,
		Date:     core.MustParseDate("2024-01-10"),
	}
}

func TestSignedOutStoreShowsDefaultsAndIgnoresMutations(t *testing.T) {
	s, _ := newTestStore(t, newFake())

	snap := s.Snapshot()
	if snap.SignedIn || len(snap.Expenses) != 5 || len(snap.Incomes) != 4 || len(snap.Assets) != 3 {
		t.Fatalf("unexpected signed-out snapshot: %+v", snap)
	}

	if _, err := s.AddExpense(context.Background(), lunch()); !errors.Is(err, ErrNoActiveUser) {
		t.Errorf("AddExpense = %v, want ErrNoActiveUser", err)
	}
	if err := s.DeleteExpense(context.Background(), "1"); !errors.Is(err, ErrNoActiveUser) {
		t.Errorf("DeleteExpense = %v, want ErrNoActiveUser", err)
	}
	theme := core.Dark
	if _, err := s.UpdateSettings(context.Background(), core.SettingsPatch{Theme: &theme}); !errors.Is(err, ErrNoActiveUser) {
		t.Errorf("UpdateSettings = %v, want ErrNoActiveUser", err)
	}
	if got := s.Snapshot(); len(got.Expenses) != 5 || got.Settings.Theme != core.Light {
		t.Errorf("signed-out mutations changed state: %+v", got)
	}
}

func TestSetUserIDLoadsAndCoercesRows(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	if _, err := svc.Store.InsertExpense(ctx, "a", remote.ExpenseRow{Title: "Lunch", Amount: core.NumberOf("450.00"), Category: "Food", Date: "2024-01-10"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Store.InsertIncome(ctx, "a", remote.IncomeRow{Amount: core.NumberOf(2000), Source: "Retainer", Date: "2024-01-01", Type: "Stable"}); err != nil {
		t.Fatal(err)
	}

	s, rec := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatalf("SetUserID: %v", err)
	}

	snap := s.Snapshot()
	if !snap.SignedIn || snap.UserID != "a" {
		t.Fatalf("not signed in: %+v", snap)
	}
	if len(snap.Expenses) != 1 || len(snap.Incomes) != 1 || len(snap.Assets) != 0 {
		t.Fatalf("loaded %d/%d/%d records", len(snap.Expenses), len(snap.Incomes), len(snap.Assets))
	}
	got := snap.Expenses[0]
	if !got.Record.Amount.Equal(decimal.NewFromInt(450)) {
		t.Errorf("amount = %s, want 450", got.Record.Amount)
	}
	if got.State.IsPending() || got.State.ID() != got.Record.ID {
		t.Errorf("loaded record state = %v id %q", got.State, got.State.ID())
	}

	if _, err := svc.GetSettings(ctx, "a"); err != nil {
		t.Errorf("missing settings row should have been created: %v", err)
	}
	if len(rec.all()) != 0 {
		t.Errorf("unexpected errors: %v", rec.all())
	}

	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Errorf("same user again: %v", err)
	}
}

func TestLegacyExchangeRateIsMigrated(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	legacy := core.DefaultSettings()
	legacy.ExchangeRate = decimal.RequireFromString("57.0")
	if err := svc.UpsertSettings(ctx, "a", remote.SettingsRowFrom(legacy)); err != nil {
		t.Fatal(err)
	}

	s, _ := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatalf("SetUserID: %v", err)
	}
	if rate := s.Settings().ExchangeRate; !rate.Equal(core.DefaultExchangeRate) {
		t.Errorf("rate = %s, want %s", rate, core.DefaultExchangeRate)
	}

	row, err := svc.GetSettings(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	stored, _ := row.Settings()
	if !stored.ExchangeRate.Equal(core.DefaultExchangeRate) {
		t.Errorf("migrated rate not persisted: %s", stored.ExchangeRate)
	}
}

func TestUnreadableSettingsFallBackToDefaults(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	row := remote.SettingsRowFrom(core.DefaultSettings())
	row.ExchangeRate = core.NumberOf("one eighty")
	row.Theme = "dark"
	if err := svc.UpsertSettings(ctx, "a", row); err != nil {
		t.Fatal(err)
	}

	s, rec := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatalf("SetUserID: %v", err)
	}
	if got := s.Settings(); !got.ExchangeRate.Equal(core.DefaultExchangeRate) || got.Theme != core.Light {
		t.Errorf("settings = %+v, want defaults", got)
	}
	if errs := rec.all(); len(errs) != 1 || errs[0].Collection != remote.CollectionSettings {
		t.Errorf("observed errors = %v", errs)
	}
}

func TestAddIsVisibleImmediatelyAndReconciledInPlace(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	s, _ := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddIncome(ctx, core.Income{Amount: decimal.NewFromInt(10), Source: "Tip", Date: core.MustParseDate("2024-01-09"), Type: core.Variable}); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	gate := make(chan struct{})
	svc.mu.Lock()
	svc.insertGate = gate
	svc.mu.Unlock()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.AddExpense(ctx, lunch())
		if err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
		ids = append(ids, id)
	}

	snap := s.Snapshot()
	if len(snap.Expenses) != 3 {
		t.Fatalf("expected 3 optimistic expenses, got %d", len(snap.Expenses))
	}
	for i, e := range snap.Expenses {
		want := ids[len(ids)-1-i]
		if !e.State.IsPending() || e.State.ID() != want || e.Record.ID != want {
			t.Errorf("entry %d = %v/%s, want pending %s", i, e.State, e.Record.ID, want)
		}
	}
	if ids[0] == ids[1] || ids[1] == ids[2] {
		t.Errorf("provisional IDs not unique: %v", ids)
	}

	close(gate)
	s.Wait()

	stored, _ := svc.ListExpenses(ctx, "a")
	storedIDs := map[string]bool{}
	for _, r := range stored {
		storedIDs[r.ID] = true
	}

	snap = s.Snapshot()
	if len(snap.Expenses) != 3 {
		t.Fatalf("expected 3 expenses after reconcile, got %d", len(snap.Expenses))
	}
	for i, e := range snap.Expenses {
		if e.State.IsPending() {
			t.Errorf("entry %d still pending", i)
		}
		if !storedIDs[e.Record.ID] || e.State.ID() != e.Record.ID {
			t.Errorf("entry %d id %q not a service id", i, e.Record.ID)
		}
	}
	if len(snap.Incomes) != 1 || snap.Incomes[0].State.IsPending() {
		t.Errorf("income not reconciled: %+v", snap.Incomes)
	}
}

func TestFailedAddIsRolledBackAndReported(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	s, rec := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}
	svc.insertErr = errBoom

	id, err := s.AddExpense(ctx, lunch())
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	s.Wait()

	if n := len(s.Snapshot().Expenses); n != 0 {
		t.Errorf("rolled back record still present (%d entries)", n)
	}
	errs := rec.all()
	if len(errs) != 1 || !errors.Is(errs[0], errBoom) || errs[0].RecordID != id || errs[0].Collection != remote.CollectionExpenses {
		t.Errorf("observed errors = %v", errs)
	}
}

func TestInvalidAddIsRejectedUpFront(t *testing.T) {
	s, _ := newTestStore(t, newFake())
	if err := s.SetUserID(context.Background(), ptr("a")); err != nil {
		t.Fatal(err)
	}
	bad := lunch()
	bad.Amount = decimal.NewFromInt(-5)
	if _, err := s.AddExpense(context.Background(), bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("AddExpense = %v, want ErrInvalidAmount", err)
	}
	if n := len(s.Snapshot().Expenses); n != 0 {
		t.Errorf("invalid expense was added")
	}
}

func TestFailedDeleteIsNotRolledBack(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	row, err := svc.Store.InsertExpense(ctx, "a", remote.ExpenseRowFrom(lunch()))
	if err != nil {
		t.Fatal(err)
	}
	s, rec := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}
	svc.deleteErr = errBoom

	if err := s.DeleteExpense(ctx, row.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if n := len(s.Snapshot().Expenses); n != 0 {
		t.Fatalf("record still visible after delete")
	}
	s.Wait()

	if n := len(s.Snapshot().Expenses); n != 0 {
		t.Errorf("failed delete was rolled back")
	}
	if errs := rec.all(); len(errs) != 1 || !errors.Is(errs[0], errBoom) {
		t.Errorf("observed errors = %v", errs)
	}
	if err := s.DeleteExpense(ctx, row.ID); !errors.Is(err, ErrUnknownRecord) {
		t.Errorf("second delete = %v, want ErrUnknownRecord", err)
	}
}

func TestDeletingPendingRecordRemovesStoredRowLater(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	s, rec := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	svc.insertGate = gate
	id, err := s.AddExpense(ctx, lunch())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("DeleteExpense(pending): %v", err)
	}
	close(gate)
	s.Wait()

	if n := len(s.Snapshot().Expenses); n != 0 {
		t.Errorf("deleted pending record came back")
	}
	if rows, _ := svc.ListExpenses(ctx, "a"); len(rows) != 0 {
		t.Errorf("stored row not cleaned up: %+v", rows)
	}
	if errs := rec.all(); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestSwitchingUsersClearsBeforeLoading(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	if _, err := svc.Store.InsertExpense(ctx, "a", remote.ExpenseRowFrom(lunch())); err != nil {
		t.Fatal(err)
	}
	s, _ := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Snapshot().Expenses); n != 1 {
		t.Fatalf("user a has %d expenses", n)
	}

	gate := make(chan struct{})
	started := make(chan string, 1)
	svc.mu.Lock()
	svc.listGate, svc.listStarted = gate, started
	svc.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.SetUserID(ctx, ptr("b")) }()

	if who := <-started; who != "b" {
		t.Fatalf("listing for %q", who)
	}
	snap := s.Snapshot()
	if snap.UserID != "b" || len(snap.Expenses) != 0 || len(snap.Incomes) != 0 || len(snap.Assets) != 0 {
		t.Errorf("user a data visible while loading b: %+v", snap)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("SetUserID(b): %v", err)
	}

	svc.mu.Lock()
	svc.listGate, svc.listStarted = nil, nil
	svc.mu.Unlock()

	if err := s.SetUserID(ctx, nil); err != nil {
		t.Fatal(err)
	}
	snap = s.Snapshot()
	if snap.SignedIn || len(snap.Expenses) != 5 || !snap.Settings.ExchangeRate.Equal(core.DefaultExchangeRate) {
		t.Errorf("signing out did not restore defaults: %+v", snap)
	}
}

func TestCreateFinishingAfterUserSwitchIsDiscarded(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	s, _ := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	svc.insertGate = gate
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}

	if err := s.SetUserID(ctx, ptr("b")); err != nil {
		t.Fatal(err)
	}
	close(gate)
	s.Wait()

	if n := len(s.Snapshot().Expenses); n != 0 {
		t.Errorf("user b sees %d expenses from user a", n)
	}
	if rows, _ := svc.ListExpenses(ctx, "a"); len(rows) != 1 {
		t.Errorf("user a's create should still be stored, got %d rows", len(rows))
	}
}

func TestLoadFailureIsReported(t *testing.T) {
	s, rec := newTestStore(t, failingLister{newFake()})
	err := s.SetUserID(context.Background(), ptr("a"))
	if !errors.Is(err, errBoom) {
		t.Fatalf("SetUserID = %v, want errBoom", err)
	}
	if len(rec.all()) == 0 {
		t.Error("load failure not observed")
	}
	if snap := s.Snapshot(); !snap.SignedIn || len(snap.Expenses) != 0 {
		t.Errorf("store should stay on user a with empty collections: %+v", snap)
	}
}

type failingLister struct{ *fakeService }

func (failingLister) ListAssets(context.Context, string) ([]remote.AssetRow, error) {
	return nil, errBoom
}

func TestUpdateSettingsMergesAndUpserts(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	s, _ := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}

	theme := core.Dark
	merged, err := s.UpdateSettings(ctx, core.SettingsPatch{Theme: &theme})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if merged.Theme != core.Dark || merged.UserName != "Freelancer" {
		t.Errorf("merged = %+v", merged)
	}
	s.Wait()

	row, err := svc.GetSettings(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if row.Theme != "dark" || row.UserName != "Freelancer" {
		t.Errorf("stored settings = %+v", row)
	}

	zero := decimal.Zero
	if _, err := s.UpdateSettings(ctx, core.SettingsPatch{ExchangeRate: &zero}); !errors.Is(err, core.ErrInvalidExchangeRate) {
		t.Errorf("zero rate = %v, want ErrInvalidExchangeRate", err)
	}
	if s.Settings().ExchangeRate.IsZero() {
		t.Error("invalid patch was applied")
	}
}

func TestReloadDuringCreate(t *testing.T) {
	tests := []struct {
		name      string
		insertErr error
		wantRows  int
	}{
		{name: "create succeeds after reload", wantRows: 1},
		{name: "create fails after reload", insertErr: errBoom, wantRows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc := newFake()
			s, rec := newTestStore(t, svc)
			if err := s.SetUserID(ctx, ptr("a")); err != nil {
				t.Fatal(err)
			}

			gate := make(chan struct{})
			svc.mu.Lock()
			svc.insertGate, svc.insertErr = gate, tt.insertErr
			svc.mu.Unlock()

			id, err := s.AddExpense(ctx, lunch())
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Reload(ctx); err != nil {
				t.Fatalf("Reload: %v", err)
			}
			snap := s.Snapshot()
			if len(snap.Expenses) != 1 || !snap.Expenses[0].State.IsPending() || snap.Expenses[0].State.ID() != id {
				t.Fatalf("pending record lost by reload: %+v", snap.Expenses)
			}

			close(gate)
			s.Wait()

			rows, _ := svc.Store.ListExpenses(ctx, "a")
			if len(rows) != tt.wantRows {
				t.Fatalf("stored rows = %d, want %d", len(rows), tt.wantRows)
			}
			snap = s.Snapshot()
			if len(snap.Expenses) != tt.wantRows {
				t.Fatalf("local expenses = %d, want %d", len(snap.Expenses), tt.wantRows)
			}
			if tt.wantRows == 1 {
				if e := snap.Expenses[0]; e.State.IsPending() || e.State.ID() != rows[0].ID {
					t.Errorf("entry = %v/%s, want confirmed %s", e.State, e.State.ID(), rows[0].ID)
				}
				if errs := rec.all(); len(errs) != 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
			} else if errs := rec.all(); len(errs) != 1 || !errors.Is(errs[0], errBoom) {
				t.Errorf("observed errors = %v", errs)
			}

			if err := s.Reload(ctx); err != nil {
				t.Fatal(err)
			}
			if n := len(s.Snapshot().Expenses); n != tt.wantRows {
				t.Errorf("after second reload: %d expenses, want %d", n, tt.wantRows)
			}
		})
	}
}

func TestStaleFetchKeepsCreateConfirmedMeanwhile(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	s, _ := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}

	insertGate := make(chan struct{})
	svc.mu.Lock()
	svc.insertGate = insertGate
	svc.mu.Unlock()
	if _, err := s.AddExpense(ctx, lunch()); err != nil {
		t.Fatal(err)
	}

	listGate := make(chan struct{})
	started := make(chan string, 1)
	svc.mu.Lock()
	svc.listGate, svc.listStarted = listGate, started
	svc.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Reload(ctx) }()
	<-started

	svc.mu.Lock()
	svc.listGate, svc.listStarted = nil, nil
	svc.mu.Unlock()

	close(insertGate)
	s.Wait()
	close(listGate)
	if err := <-done; err != nil {
		t.Fatalf("Reload: %v", err)
	}

	rows, _ := svc.Store.ListExpenses(ctx, "a")
	snap := s.Snapshot()
	if len(rows) != 1 || len(snap.Expenses) != 1 {
		t.Fatalf("stored=%d local=%d, want 1 and 1", len(rows), len(snap.Expenses))
	}
	if e := snap.Expenses[0]; e.State.IsPending() || e.State.ID() != rows[0].ID {
		t.Errorf("entry = %v/%s, want confirmed %s", e.State, e.State.ID(), rows[0].ID)
	}
}

func TestStaleFetchDoesNotResurrectDeletedRecord(t *testing.T) {
	ctx := context.Background()
	svc := newFake()
	row, err := svc.Store.InsertExpense(ctx, "a", remote.ExpenseRowFrom(lunch()))
	if err != nil {
		t.Fatal(err)
	}
	s, _ := newTestStore(t, svc)
	if err := s.SetUserID(ctx, ptr("a")); err != nil {
		t.Fatal(err)
	}

	listGate := make(chan struct{})
	started := make(chan string, 1)
	svc.mu.Lock()
	svc.listGate, svc.listStarted = listGate, started
	svc.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Reload(ctx) }()
	<-started

	svc.mu.Lock()
	svc.listGate, svc.listStarted = nil, nil
	svc.mu.Unlock()

	if err := s.DeleteExpense(ctx, row.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	s.Wait()
	close(listGate)
	if err := <-done; err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if n := len(s.Snapshot().Expenses); n != 0 {
		t.Errorf("deleted record came back with %d expenses", n)
	}
	if rows, _ := svc.Store.ListExpenses(ctx, "a"); len(rows) != 0 {
		t.Errorf("stored rows = %d, want 0", len(rows))
	}
}
